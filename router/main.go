package router

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/config"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/handlers"
	admin_handlers "github.com/sahilchouksey/course-catalog/handlers/admin"
	auth_handlers "github.com/sahilchouksey/course-catalog/handlers/auth"
	content_handlers "github.com/sahilchouksey/course-catalog/handlers/content"
	course_handlers "github.com/sahilchouksey/course-catalog/handlers/course"
	item_handlers "github.com/sahilchouksey/course-catalog/handlers/item"
	module_handlers "github.com/sahilchouksey/course-catalog/handlers/module"
	subject_handlers "github.com/sahilchouksey/course-catalog/handlers/subject"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils"
	"github.com/sahilchouksey/course-catalog/utils/auth"
	"github.com/sahilchouksey/course-catalog/utils/cache"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"github.com/sahilchouksey/course-catalog/utils/middleware"
)

const orderLockTTL = 5 * time.Second

// Dependencies are the long-lived resources the routes are built on
type Dependencies struct {
	Store    database.Storage
	Env      *config.EnvironmentVariable
	Log      *logger.Logger
	Registry *services.ItemRegistry
	// Cache is nil when REDIS_URL is unset or unreachable
	Cache *cache.RedisCache
	// Objects is nil when Spaces credentials are not configured
	Objects services.ObjectStore
	// DisableAccessLog turns off the per-request log line (tests)
	DisableAccessLog bool
}

// SetupRoutes builds services and handlers and registers every route
func SetupRoutes(app *fiber.App, deps Dependencies) error {
	if deps.Env == nil || deps.Env.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	db := deps.Store.GetDB()

	registry := deps.Registry
	if registry == nil {
		registry = services.NewItemRegistry(db)
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: deps.Env.JWT_SECRET,
		Issuer: deps.Env.JWT_ISSUER,
	})
	blacklist := auth.NewBlacklist(db)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, blacklist, db)

	// interfaces stay nil when Redis is off so services skip caching and locking
	var (
		subjectCache services.JSONCache
		locker       services.OrderLocker
		pinger       handlers.Pinger
		bruteForce   *middleware.BruteForceProtection
	)
	if deps.Cache != nil {
		subjectCache = deps.Cache
		locker = deps.Cache.NewScopeLocker(orderLockTTL)
		pinger = deps.Cache
		bruteForce = middleware.NewBruteForceProtection(deps.Cache, log)
	} else {
		log.Warn("redis disabled: no subject cache, order lock or login throttling")
	}

	// Services
	userService := services.NewUserService(db)
	subjectService := services.NewSubjectService(db, subjectCache, log)
	courseService := services.NewCourseService(db, subjectService, locker, log)
	moduleService := services.NewModuleService(db, registry, locker, log)
	itemService := services.NewItemService(db, registry, deps.Objects, log)
	contentService := services.NewContentService(db, registry, itemService, locker, log)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(userService, jwtManager, blacklist, bruteForce, log)
	subjectHandler := subject_handlers.NewSubjectHandler(subjectService, log)
	courseHandler := course_handlers.NewCourseHandler(courseService, log)
	moduleHandler := module_handlers.NewModuleHandler(moduleService, log)
	itemHandler := item_handlers.NewItemHandler(itemService, registry, int64(deps.Env.UPLOAD_MAX_MB)<<20, log)
	contentHandler := content_handlers.NewContentHandler(contentService, itemHandler, log)

	audit := func(action, resource string, snapshot func() interface{}) fiber.Handler {
		return middleware.AdminAuditLog(db, log, middleware.AuditConfig{
			Action:   action,
			Resource: resource,
			Snapshot: snapshot,
		})
	}
	subjectSnapshot := func() interface{} { return &model.Subject{} }
	courseSnapshot := func() interface{} { return &model.Course{} }

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    deps.Env.ALLOWED_ORIGINS,
		RateLimitRequests: deps.Env.RATE_LIMIT_REQUESTS,
		RateLimitWindow:   time.Minute,
		DisableAccessLog:  deps.DisableAccessLog,
	})

	// Health check endpoint (public)
	app.Get("/ping", handlers.HandleCheckHealth(deps.Store, pinger))

	api := app.Group("/api/v1")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	if bruteForce != nil {
		authGroup.Post("/login", bruteForce.CheckLockout(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)

	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// Subjects: public reads, admin writes
	subjects := api.Group("/subjects")
	subjects.Get("/", subjectHandler.ListSubjects)
	subjects.Get("/:id", subjectHandler.GetSubject)
	subjects.Post("/", authMiddleware.RequireAdmin(), audit("subject_create", "subjects", nil), subjectHandler.CreateSubject)
	subjects.Put("/:id", authMiddleware.RequireAdmin(), audit("subject_update", "subjects", subjectSnapshot), subjectHandler.UpdateSubject)
	subjects.Delete("/:id", authMiddleware.RequireAdmin(), audit("subject_delete", "subjects", subjectSnapshot), subjectHandler.DeleteSubject)

	// Courses: public reads, owner or admin writes
	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)
	courses.Get("/:id", courseHandler.GetCourse)
	courses.Post("/", authMiddleware.Required(), courseHandler.CreateCourse)
	courses.Put("/:id", authMiddleware.Required(), audit("course_update", "courses", courseSnapshot), courseHandler.UpdateCourse)
	courses.Delete("/:id", authMiddleware.Required(), audit("course_delete", "courses", courseSnapshot), courseHandler.DeleteCourse)

	// Modules nested under courses
	courseModules := courses.Group("/:course_id/modules")
	courseModules.Get("/", moduleHandler.ListModules)
	courseModules.Post("/", authMiddleware.Required(), moduleHandler.CreateModule)
	courseModules.Put("/order", authMiddleware.Required(), moduleHandler.ReorderModules)

	modules := api.Group("/modules")
	modules.Get("/:id", moduleHandler.GetModule)
	modules.Put("/:id", authMiddleware.Required(), moduleHandler.UpdateModule)
	modules.Delete("/:id", authMiddleware.Required(), moduleHandler.DeleteModule)

	// Contents nested under modules
	moduleContents := modules.Group("/:module_id/contents")
	moduleContents.Get("/", contentHandler.ListContents)
	moduleContents.Post("/", authMiddleware.Required(), contentHandler.CreateContent)
	moduleContents.Put("/order", authMiddleware.Required(), contentHandler.ReorderContents)
	moduleContents.Post("/:item_type", authMiddleware.Required(), contentHandler.CreateContentWithItem)

	contents := api.Group("/contents")
	contents.Get("/:id", contentHandler.GetContent)
	contents.Delete("/:id", authMiddleware.Required(), contentHandler.DeleteContent)

	// Items are private to their owner (and admins)
	items := api.Group("/items/:item_type", authMiddleware.Required())
	items.Get("/", itemHandler.ListItems)
	items.Post("/", itemHandler.CreateItem)
	items.Get("/:id", itemHandler.GetItem)
	items.Put("/:id", itemHandler.UpdateItem)
	items.Delete("/:id", itemHandler.DeleteItem)

	// Admin
	adminGroup := api.Group("/admin", authMiddleware.RequireAdmin())
	adminGroup.Get("/audit", utils.MakeHTTPHandleFunc(admin_handlers.ListAuditLogs, deps.Store))
	adminGroup.Get("/audit/:id", utils.MakeHTTPHandleFunc(admin_handlers.GetAuditLog, deps.Store))
	adminGroup.Get("/overview", utils.MakeHTTPHandleFunc(admin_handlers.GetCatalogOverview, deps.Store))
	adminGroup.Get("/jobs", utils.MakeHTTPHandleFunc(admin_handlers.ListCronJobLogs, deps.Store))
	adminGroup.Get("/users", utils.MakeHTTPHandleFunc(admin_handlers.ListUsers, deps.Store))
	adminGroup.Put("/users/:id/role", audit("user_role_update", "users", func() interface{} { return &model.User{} }),
		utils.MakeHTTPHandleFunc(admin_handlers.UpdateUserRole, deps.Store))

	return nil
}
