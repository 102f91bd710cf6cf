package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coursepay-next/internal/authz"
	"github.com/coursepay-next/internal/cache"
	"github.com/coursepay-next/internal/config"
	adminhandlers "github.com/coursepay-next/internal/http/handlers/admin"
	publichandlers "github.com/coursepay-next/internal/http/handlers/public"
	"github.com/coursepay-next/internal/http/response"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "cp"
	}
	redisClient := cache.Client()
	callbackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:callback", redisPrefix),
		WindowSeconds: cfg.Security.CallbackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CallbackRateLimit.MaxRequests,
	}
	orderRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:order", redisPrefix),
		WindowSeconds: cfg.Security.OrderRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.OrderRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 课程目录（无需鉴权）
		apiV1.GET("/courses", publicHandler.GetCourses)
		apiV1.GET("/courses/:slug", publicHandler.GetCourseBySlug)

		// 学员认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", publicHandler.Login)
		}

		// 网关通知通道：回调（浏览器回跳）与 webhook（服务端投递），
		// 两条路径最终汇入同一条对账逻辑
		callbacks := apiV1.Group("/payments")
		callbacks.Use(RateLimitMiddleware(redisClient, callbackRule, KeyByIPAndGateway))
		{
			callbacks.GET("/:gateway/callback", publicHandler.PaymentCallback)
			callbacks.POST("/:gateway/callback", publicHandler.PaymentCallback)
			callbacks.POST("/:gateway/webhook", publicHandler.PaymentWebhook)
		}

		// 学员接口（需鉴权）
		student := apiV1.Group("")
		student.Use(UserJWTAuthMiddleware(c.UserAuthService, c.UserRepo))
		{
			student.GET("/me", publicHandler.Me)

			student.POST("/orders", RateLimitMiddleware(redisClient, orderRule, KeyByUserID), publicHandler.CreateOrder)
			student.GET("/orders", publicHandler.ListOrders)
			student.GET("/orders/:order_code", publicHandler.GetOrder)
			student.PATCH("/orders/:id/cancel", publicHandler.CancelOrder)

			student.POST("/coupons/apply", publicHandler.ApplyCoupon)

			student.POST("/enrollments", publicHandler.EnrollFree)
			student.GET("/enrollments", publicHandler.ListEnrollments)
			student.PATCH("/enrollments/:course_id/progress", publicHandler.UpdateProgress)

			student.POST("/refund-requests", publicHandler.CreateRefund)
			student.GET("/refund-requests", publicHandler.ListRefunds)
			student.GET("/refund-requests/:id", publicHandler.GetRefund)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", adminHandler.Login)

			// 需要鉴权的接口
			authorized := admin.Use(AdminJWTAuthMiddleware(c.AuthService, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/me", adminHandler.Me)

				// 课程读模型管理
				authorized.GET("/courses", adminHandler.ListAdminCourses)
				authorized.GET("/courses/:id", adminHandler.GetAdminCourse)
				authorized.POST("/courses", adminHandler.CreateCourse)
				authorized.PUT("/courses/:id", adminHandler.UpdateCourse)

				// 优惠券管理
				authorized.GET("/coupons", adminHandler.ListCoupons)
				authorized.GET("/coupons/:id", adminHandler.GetCoupon)
				authorized.POST("/coupons", adminHandler.CreateCoupon)
				authorized.PUT("/coupons/:id", adminHandler.UpdateCoupon)
				authorized.DELETE("/coupons/:id", adminHandler.DeleteCoupon)

				// 订单管理
				authorized.GET("/orders", adminHandler.ListAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)

				// 退款处理队列
				authorized.GET("/refund-requests", adminHandler.ListAdminRefunds)
				authorized.GET("/refund-requests/:id", adminHandler.GetAdminRefund)
				authorized.POST("/refund-requests/:id/process", adminHandler.ProcessRefund)

				// 权限点目录，供角色授权界面使用
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
