package controllers

import (
	"strconv"

	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services"
	"github.com/ArunGarimella04/Guardian-AI/internal/domain/services/container"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/code"
	"github.com/ArunGarimella04/Guardian-AI/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceSafePlaceController 定义安全场所控制器接口
type InterfaceSafePlaceController interface {
	GetNearby()
	GetDetails()
}

// SafePlaceController 处理安全场所查询请求
type SafePlaceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewSafePlaceController 创建一个新的安全场所控制器
func NewSafePlaceController(ctx *gin.Context, container *container.ServiceContainer) *SafePlaceController {
	return &SafePlaceController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleSafePlaceFunc 返回一个处理安全场所请求的Gin处理函数
func HandleSafePlaceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewSafePlaceController(ctx, container)

		switch method {
		case "getNearby":
			controller.GetNearby()
		case "getDetails":
			controller.GetDetails()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. GetNearby 查询附近的安全场所
// @Summary      Get Nearby Safe Places
// @Description  List safe places near the given coordinates, sorted by distance
// @Tags         SafePlace
// @Produce      json
// @Param        lat  query number true  "Latitude"
// @Param        lng  query number true  "Longitude"
// @Param        type query string false "Place type filter, e.g. police, hospital"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  response.Response
// @Router       /safe-places [get]
func (c *SafePlaceController) GetNearby() {
	lat, err := strconv.ParseFloat(c.Ctx.Query("lat"), 64)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的纬度", nil)
		return
	}
	lng, err := strconv.ParseFloat(c.Ctx.Query("lng"), 64)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的经度", nil)
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		response.Fail(c.Ctx, code.ErrInvalidLocation, nil)
		return
	}

	safePlaceService := c.Container.GetService("safe_place").(services.InterfaceSafePlaceService)
	places := safePlaceService.GetNearbyPlaces(lat, lng, c.Ctx.Query("type"))

	response.Success(c.Ctx, gin.H{
		"count":  len(places),
		"places": places,
	})
}

// 2. GetDetails 查询某个安全场所的详情
// @Summary      Get Safe Place Details
// @Description  Get details of a safe place by ID
// @Tags         SafePlace
// @Produce      json
// @Param        id path string true "Safe place ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  response.Response
// @Router       /safe-places/{id} [get]
func (c *SafePlaceController) GetDetails() {
	safePlaceService := c.Container.GetService("safe_place").(services.InterfaceSafePlaceService)
	place, found := safePlaceService.GetPlaceDetails(c.Ctx.Param("id"))
	if !found {
		response.Fail(c.Ctx, code.ErrRecordNotFound, nil)
		return
	}

	response.Success(c.Ctx, place)
}
