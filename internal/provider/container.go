package provider

import (
	"github.com/coursepay-next/internal/authz"
	"github.com/coursepay-next/internal/cache"
	"github.com/coursepay-next/internal/config"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/models"
	"github.com/coursepay-next/internal/payment"
	"github.com/coursepay-next/internal/payment/momo"
	"github.com/coursepay-next/internal/payment/vnpay"
	"github.com/coursepay-next/internal/queue"
	"github.com/coursepay-next/internal/repository"
	"github.com/coursepay-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config          *config.Config
	QueueClient     *queue.Client
	PaymentRegistry *payment.Registry

	// Repositories
	AdminRepo       repository.AdminRepository
	UserRepo        repository.UserRepository
	CourseRepo      repository.CourseRepository
	OrderRepo       repository.OrderRepository
	TransactionRepo repository.PaymentTransactionRepository
	CouponRepo      repository.CouponRepository
	CouponUsageRepo repository.CouponUsageRepository
	EnrollmentRepo  repository.EnrollmentRepository
	RefundRepo      repository.RefundRequestRepository

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	UserAuthService    *service.UserAuthService
	CourseService      *service.CourseService
	CouponService      *service.CouponService
	CouponAdminService *service.CouponAdminService
	EnrollmentService  *service.EnrollmentService
	OrderService       *service.OrderService
	ReconcileService   *service.ReconcileService
	RefundService      *service.RefundService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initPaymentRegistry()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.CourseRepo = repository.NewCourseRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.TransactionRepo = repository.NewPaymentTransactionRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.EnrollmentRepo = repository.NewEnrollmentRepository(db)
	c.RefundRepo = repository.NewRefundRequestRepository(db)
}

// initPaymentRegistry 注册已配置的支付网关适配器。
// 配置不完整的网关跳过注册，下单时返回网关不可用。
func (c *Container) initPaymentRegistry() {
	registry := payment.NewRegistry()

	vnpayAdapter, err := vnpay.New(vnpay.Config{
		TmnCode:    c.Config.Payment.VNPay.TmnCode,
		HashSecret: c.Config.Payment.VNPay.HashSecret,
		PayURL:     c.Config.Payment.VNPay.PayURL,
		RefundURL:  c.Config.Payment.VNPay.RefundURL,
		ReturnURL:  c.Config.Payment.VNPay.ReturnURL,
		TimeoutMS:  c.Config.Payment.VNPay.TimeoutMS,
	})
	if err != nil {
		logger.Warnw("provider_vnpay_not_registered", "error", err)
	} else {
		registry.Register(vnpayAdapter)
	}

	momoAdapter, err := momo.New(momo.Config{
		PartnerCode: c.Config.Payment.MoMo.PartnerCode,
		AccessKey:   c.Config.Payment.MoMo.AccessKey,
		SecretKey:   c.Config.Payment.MoMo.SecretKey,
		Endpoint:    c.Config.Payment.MoMo.Endpoint,
		RefundURL:   c.Config.Payment.MoMo.RefundURL,
		ReturnURL:   c.Config.Payment.MoMo.ReturnURL,
		NotifyURL:   c.Config.Payment.MoMo.NotifyURL,
		TimeoutMS:   c.Config.Payment.MoMo.TimeoutMS,
	})
	if err != nil {
		logger.Warnw("provider_momo_not_registered", "error", err)
	} else {
		registry.Register(momoAdapter)
	}

	logger.Infow("provider_payment_registry_ready", "gateways", registry.Names())
	c.PaymentRegistry = registry
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.CourseService = service.NewCourseService(c.CourseRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo)
	c.EnrollmentService = service.NewEnrollmentService(c.EnrollmentRepo, c.CourseRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CourseRepo, c.EnrollmentRepo, c.CouponService, c.PaymentRegistry, c.QueueClient, c.Config.Order.PaymentExpireMinutes)
	c.ReconcileService = service.NewReconcileService(c.OrderRepo, c.TransactionRepo, c.CouponService, c.EnrollmentService, c.PaymentRegistry, c.QueueClient)
	c.RefundService = service.NewRefundService(c.RefundRepo, c.OrderRepo, c.TransactionRepo, c.CouponService, c.EnrollmentService, c.PaymentRegistry, c.QueueClient, c.Config.Refund)
}
