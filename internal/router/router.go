package router

import (
	"time"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/config"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/handler"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/infra"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/middleware"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/printing"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/service"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/worker"
)

// Workers exposes what cmd/server needs to run the async side: the queue
// handlers and the fiscal service driven by the retry cron.
type Workers struct {
	Handlers worker.Handlers
	Fiscal   service.FiscalPoolService
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← Store/Redis
func New(cfg *config.Config, st *store.Store, rdb *redis.Client, fiscalCB *infra.CircuitBreaker) (*gin.Engine, *Workers) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	limiter := middleware.NewRateLimiter(rdb)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.API(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	fiscalClient := infra.NewFiscalClient(cfg.FiscalSidecarURL)
	mailer := infra.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	printer := printing.NewAgentClient(cfg.PrintAgentURL)

	// ── Repositories ─────────────────────────────────────────────────────────
	orderRepo := repository.NewOrderRepository(st)
	chargeRepo := repository.NewChargeRepository(st)
	cashierRepo := repository.NewCashierRepository(st)
	fiscalRepo := repository.NewFiscalRepository(st)
	productRepo := repository.NewProductRepository(st)
	operatorRepo := repository.NewOperatorRepository(st)
	roomRepo := repository.NewRoomRepository(st)
	stockRepo := repository.NewStockRepository(st)

	// ── Services ─────────────────────────────────────────────────────────────
	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	authSvc := service.NewAuthService(operatorRepo, cfg)
	catalogSvc := service.NewCatalogService(productRepo)
	fiscalSvc := service.NewFiscalPoolService(fiscalRepo, fiscalClient, fiscalCB, dispatcher, cfg.FiscalCNPJ)
	cashierSvc := service.NewCashierService(cashierRepo, fiscalSvc, dispatcher)
	commissionSvc := service.NewCommissionService(cashierRepo, decimal.NewFromFloat(cfg.CommissionRate))

	bookCfg := service.OrderBookConfig{
		ServiceFeeRate:    decimal.NewFromFloat(cfg.ServiceFeeRate),
		StaffDiscountRate: decimal.NewFromFloat(cfg.StaffDiscountRate),
		LiveMusic:         cfg.LiveMusic,
		CoverProductID:    cfg.CoverProductID,
		PDFDir:            cfg.PDFStoragePath,
	}
	orderSvc := service.NewOrderBookService(orderRepo, chargeRepo, roomRepo, stockRepo,
		operatorRepo, catalogSvc, cashierSvc, fiscalSvc, printer, infra.GenerateBillPDF, bookCfg)
	chargeSvc := service.NewChargeLedgerService(chargeRepo, roomRepo, stockRepo,
		catalogSvc, cashierSvc, fiscalSvc, bookCfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	mesasH := handler.NewMesasHandler(orderSvc)
	consumosH := handler.NewConsumosHandler(chargeSvc)
	caixaH := handler.NewCaixaHandler(cashierSvc)
	fiscalH := handler.NewFiscalHandler(fiscalSvc)
	comissoesH := handler.NewComissoesHandler(commissionSvc)
	produtosH := handler.NewProdutosHandler(catalogSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(st, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", limiter.Login(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleColaborador, model.RoleSupervisor, model.RoleGerente, model.RoleAdmin)
	manageRole := middleware.RequireRole(model.RoleSupervisor, model.RoleGerente, model.RoleAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		mesas := v1.Group("/mesas", anyRole)
		{
			mesas.POST("", mesasH.Abrir)
			mesas.GET("", mesasH.Listar)
			mesas.GET("/:id", mesasH.Detalhe)
			mesas.POST("/:id/itens", mesasH.AdicionarItens)
			// Authorization for removals and transfers is enforced in the
			// service (role or manager password), not only at the route.
			mesas.DELETE("/:id/itens/:item_id", mesasH.RemoverItem)
			mesas.POST("/:id/transferir-item", mesasH.TransferirItem)
			mesas.POST("/:id/transferir-quarto", mesasH.TransferirQuarto)
			mesas.POST("/:id/conta", mesasH.PuxarConta)
			mesas.POST("/:id/destravar", mesasH.Destravar)
			mesas.POST("/:id/fechar", mesasH.Fechar)
			mesas.POST("/:id/reimprimir", mesasH.Reimprimir)
			mesas.DELETE("/:id", middleware.RequireRole(model.RoleSupervisor, model.RoleGerente, model.RoleAdmin), mesasH.Cancelar)
		}

		consumos := v1.Group("/consumos", anyRole)
		{
			consumos.GET("", consumosH.Listar)
			consumos.POST("", consumosH.Lancar)
			consumos.POST("/:id/pagar", consumosH.Pagar)
			consumos.POST("/quarto/:quarto/fechar", consumosH.FecharConta)
			consumos.PATCH("/:id", manageRole, consumosH.Editar)
			consumos.DELETE("/:id", manageRole, consumosH.Cancelar)
		}

		caixa := v1.Group("/caixa", anyRole)
		{
			caixa.POST("", caixaH.Abrir)
			caixa.GET("/ativo/:tipo", caixaH.Ativo)
			caixa.POST("/:tipo/lancamentos", caixaH.Lancar)
			caixa.POST("/fechar/:id", caixaH.Fechar)
			caixa.GET("/historico", manageRole, caixaH.Historico)
		}

		fiscal := v1.Group("/fiscal", manageRole)
		{
			fiscal.GET("", fiscalH.Listar)
			fiscal.POST("/:id/emitir", fiscalH.Emitir)
			fiscal.POST("/:id/ignorar", fiscalH.Ignorar)
			fiscal.POST("/processar", fiscalH.Processar)
		}

		v1.GET("/comissoes/ranking", manageRole, comissoesH.Ranking)

		v1.GET("/produtos", anyRole, produtosH.Listar)
		v1.GET("/produtos/:id", anyRole, produtosH.Detalhe)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	workers := &Workers{
		Handlers: worker.Handlers{
			Emissao:   worker.NewEmissionWorker(fiscalSvc, rdb),
			Relatorio: worker.NewReportWorker(cashierRepo, mailer, cfg.PDFStoragePath, cfg.ReportEmailTo),
		},
		Fiscal: fiscalSvc,
	}
	return r, workers
}
