package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockflowhq/stockflow-backend/api/controllers"
	"github.com/stockflowhq/stockflow-backend/api/middleware"
	authsvc "github.com/stockflowhq/stockflow-backend/internal/auth"
	catalogsvc "github.com/stockflowhq/stockflow-backend/internal/catalog"
	customersvc "github.com/stockflowhq/stockflow-backend/internal/customers"
	ordersvc "github.com/stockflowhq/stockflow-backend/internal/orders"
	pricelistsvc "github.com/stockflowhq/stockflow-backend/internal/pricelists"
	stocksvc "github.com/stockflowhq/stockflow-backend/internal/stock"
	usersvc "github.com/stockflowhq/stockflow-backend/internal/users"
	warehousesvc "github.com/stockflowhq/stockflow-backend/internal/warehouses"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
	"github.com/stockflowhq/stockflow-backend/pkg/metrics"
	pkgredis "github.com/stockflowhq/stockflow-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *db.Client
	Redis       *pkgredis.Client
	Metrics     *metrics.HTTPMetrics
	MetricsPage http.Handler

	Auth       authsvc.Service
	Stock      stocksvc.Service
	Orders     ordersvc.Service
	Catalog    catalogsvc.Service
	Warehouses warehousesvc.Service
	Customers  customersvc.Service
	PriceLists pricelistsvc.Service
	Users      usersvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Metrics(deps.Metrics),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	metricsPage := deps.MetricsPage
	if metricsPage == nil {
		metricsPage = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsPage)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.Login(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		var idemStore pkgredis.IdempotencyStore
		if deps.Redis != nil {
			idemStore = deps.Redis
		}
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/add", controllers.AddStock(deps.Stock, logg))
			r.Post("/remove", controllers.RemoveStock(deps.Stock, logg))
			r.Get("/products/{productID}/warehouses/{warehouseID}", controllers.GetStock(deps.Stock, logg))
			r.Get("/warehouses/{warehouseID}", controllers.ListWarehouseStock(deps.Stock, logg))
			r.Get("/products/{productID}/movements", controllers.ListMovements(deps.Stock, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Put("/{orderID}", controllers.UpdateOrder(deps.Orders, logg))
			r.Delete("/{orderID}", controllers.DeleteOrder(deps.Orders, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/{productID}", controllers.GetProduct(deps.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Post("/", controllers.CreateProduct(deps.Catalog, logg))
				r.Put("/{productID}", controllers.UpdateProduct(deps.Catalog, logg))
				r.Delete("/{productID}", controllers.DeleteProduct(deps.Catalog, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(deps.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Post("/", controllers.CreateCategory(deps.Catalog, logg))
				r.Put("/{categoryID}", controllers.UpdateCategory(deps.Catalog, logg))
				r.Delete("/{categoryID}", controllers.DeleteCategory(deps.Catalog, logg))
			})
		})

		r.Route("/warehouses", func(r chi.Router) {
			r.Get("/", controllers.ListWarehouses(deps.Warehouses, logg))
			r.Get("/{warehouseID}", controllers.GetWarehouse(deps.Warehouses, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Post("/", controllers.CreateWarehouse(deps.Warehouses, logg))
				r.Put("/{warehouseID}", controllers.UpdateWarehouse(deps.Warehouses, logg))
				r.Delete("/{warehouseID}", controllers.DeleteWarehouse(deps.Warehouses, logg))
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.ListCustomers(deps.Customers, logg))
			r.Get("/{customerID}", controllers.GetCustomer(deps.Customers, logg))
			r.Post("/", controllers.CreateCustomer(deps.Customers, logg))
			r.Put("/{customerID}", controllers.UpdateCustomer(deps.Customers, logg))
			r.Delete("/{customerID}", controllers.DeleteCustomer(deps.Customers, logg))
		})

		r.Route("/price-lists", func(r chi.Router) {
			r.Get("/", controllers.ListPriceLists(deps.PriceLists, logg))
			r.Get("/{priceListID}", controllers.GetPriceList(deps.PriceLists, logg))
			r.Get("/{priceListID}/prices", controllers.ListPrices(deps.PriceLists, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Post("/", controllers.CreatePriceList(deps.PriceLists, logg))
				r.Put("/{priceListID}", controllers.UpdatePriceList(deps.PriceLists, logg))
				r.Delete("/{priceListID}", controllers.DeletePriceList(deps.PriceLists, logg))
				r.Put("/{priceListID}/prices", controllers.SetPrice(deps.PriceLists, logg))
				r.Delete("/{priceListID}/prices/{productID}", controllers.RemovePrice(deps.PriceLists, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/", controllers.ListUsers(deps.Users, logg))
			r.Get("/{userID}", controllers.GetUser(deps.Users, logg))
			r.Post("/", controllers.CreateUser(deps.Users, logg))
			r.Put("/{userID}", controllers.UpdateUser(deps.Users, logg))
			r.Delete("/{userID}", controllers.DeactivateUser(deps.Users, logg))
		})
	})

	return r
}
