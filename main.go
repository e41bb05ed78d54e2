package main

import (
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mansamusa/marketplace_backend/config"
	"github.com/mansamusa/marketplace_backend/controllers"
	"github.com/mansamusa/marketplace_backend/middleware"
	"github.com/mansamusa/marketplace_backend/repositories"
	"github.com/mansamusa/marketplace_backend/routes"
	"github.com/mansamusa/marketplace_backend/services"
	"github.com/mansamusa/marketplace_backend/utils"
	"github.com/mansamusa/marketplace_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	cfg := config.Load()

	// Ensure correct MIME type for SVG files
	_ = mime.AddExtensionType(".svg", "image/svg+xml")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	client := config.ConnectDB(cfg)
	db := client.Database(cfg.DBName)

	// Redis is optional; without it locks and caches fall back to Mongo
	var (
		cache  services.Cache
		locker services.Locker
	)
	if redisClient := config.ConnectRedis(cfg); redisClient != nil {
		store := repositories.NewRedisStore(redisClient, "mansamusa:")
		cache, locker = store, store
		defer redisClient.Close()
	}

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	businessRepo := repositories.NewBusinessRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)
	qrRepo := repositories.NewQRCodeRepository(db)
	scanRepo := repositories.NewScanRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	rewardRepo := repositories.NewRewardRepository(db)
	redemptionRepo := repositories.NewRedemptionRepository(db)
	karmaEventRepo := repositories.NewKarmaEventRepository(db)
	agentRepo := repositories.NewAgentRepository(db)
	businessReferralRepo := repositories.NewBusinessReferralRepository(db)
	commissionRepo := repositories.NewCommissionRepository(db)
	payoutRepo := repositories.NewPayoutRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	processedEventRepo := repositories.NewProcessedEventRepository(db)
	sponsorRepo := repositories.NewSponsorRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)
	challengeRepo := repositories.NewChallengeRepository(db)
	participationRepo := repositories.NewParticipationRepository(db)
	flagRepo := repositories.NewFeatureFlagRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Integrations
	var push services.PushSender
	if fcm := config.InitMessaging(ctx, cfg); fcm != nil {
		push = fcm
	}
	tracker := services.NewPostHogTracker(cfg.PostHogHost, cfg.PostHogAPIKey)
	defer tracker.Close()
	mailer := services.NewSMTPMailer(services.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	var gateway services.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Println("WARNING: STRIPE_SECRET_KEY is missing; payments are disabled")
	}

	var apple services.AppleVerifier
	if cfg.AppleBundleID != "" {
		verifier, err := services.NewAppStoreVerifier(cfg.AppleRootCertPath, cfg.AppleBundleID, cfg.AppleAllowUnverified)
		if err != nil {
			log.Printf("App Store notifications disabled: %v", err)
		} else {
			apple = verifier
		}
	}

	jwtManager := middleware.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, userRepo)

	// Initialize services
	notificationService := services.NewNotificationService(notificationRepo, userRepo, wsHub, push)
	karmaService := services.NewKarmaService(userRepo, karmaEventRepo)
	loyaltyService := services.NewLoyaltyService(userRepo, ledgerRepo, rewardRepo, redemptionRepo, businessRepo, notificationService, tracker)
	challengeService := services.NewChallengeService(challengeRepo, participationRepo, loyaltyService, karmaService, notificationService)
	authService := services.NewAuthService(userRepo, loyaltyService, karmaService, jwtManager.Issue)
	referralService := services.NewReferralService(services.ReferralServiceConfig{
		Agents:      agentRepo,
		Referrals:   businessReferralRepo,
		Commissions: commissionRepo,
		Payouts:     payoutRepo,
		Users:       userRepo,
		Gateway:     gateway,
		Karma:       karmaService,
		Activity:    challengeService,
		Mailer:      mailer,
		Notifier:    notificationService,
		Tracker:     tracker,
	})
	businessService := services.NewBusinessService(businessRepo, verificationRepo, referralService, notificationService)
	qrService := services.NewQRService(services.QRServiceConfig{
		Codes:      qrRepo,
		Scans:      scanRepo,
		Businesses: businessRepo,
		Users:      userRepo,
		Loyalty:    loyaltyService,
		Karma:      karmaService,
		Activity:   challengeService,
		Locker:     locker,
		Notifier:   notificationService,
		Tracker:    tracker,
		SiteURL:    cfg.SiteURL,
	})
	subscriptionService := services.NewSubscriptionService(services.SubscriptionServiceConfig{
		Subscriptions:   subscriptionRepo,
		ProcessedEvents: processedEventRepo,
		Users:           userRepo,
		Businesses:      businessRepo,
		Sponsors:        sponsorRepo,
		Gateway:         gateway,
		Apple:           apple,
		Referrals:       referralService,
		Notifier:        notificationService,
		Tracker:         tracker,
		Plans:           services.DefaultPlans(cfg.StripePrices),
		AppleProducts:   cfg.AppleProducts,
		SiteURL:         cfg.SiteURL,
	})
	sponsorService := services.NewSponsorService(sponsorRepo, businessRepo)
	reviewService := services.NewReviewService(reviewRepo, businessRepo, userRepo, karmaService, challengeService)
	flagService := services.NewFeatureFlagService(flagRepo, cache)
	accountService := services.NewAccountService(userRepo, services.DeletionSteps(services.AccountStores{
		Users:          userRepo,
		Reviews:        reviewRepo,
		Scans:          scanRepo,
		Ledger:         ledgerRepo,
		Redemptions:    redemptionRepo,
		Participations: participationRepo,
		KarmaEvents:    karmaEventRepo,
		Notifications:  notificationRepo,
		Subscriptions:  subscriptionRepo,
		Businesses:     businessRepo,
		QRCodes:        qrRepo,
		Rewards:        rewardRepo,
		Agents:         agentRepo,
		Sponsors:       sponsorRepo,
	}, subscriptionService, reviewService), mailer, tracker)
	sitemapService := services.NewSitemapService(businessRepo, cache, cfg.SiteURL)
	ttsService := services.NewTTSService(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSModel, cache)

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = controllers.HTTPErrorHandler

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()
	go rateLimiter.Cleanup(ctx)
	go jwtManager.CleanupBlacklist(ctx)

	// Middleware
	if !cfg.IsDevelopment() {
		e.Pre(middleware.HTTPSRedirect())
	}
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS(cfg.CORSOrigins))
	e.Use(echoMiddleware.Secure())
	e.Use(echoMiddleware.BodyLimit("10M"))
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.ContentTypeGuard())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{cfg.SiteURL},
		AllowInlineJS:  cfg.IsDevelopment(),
	}))

	if err := os.MkdirAll(filepath.Join(utils.UploadBaseDir, "logos"), 0755); err != nil {
		log.Fatalf("Failed to create uploads directory: %v", err)
	}

	routes.SetupRoutes(e, jwtManager, routes.Controllers{
		Auth:         controllers.NewAuthController(authService, jwtManager),
		Business:     controllers.NewBusinessController(businessService),
		QR:           controllers.NewQRController(qrService),
		Loyalty:      controllers.NewLoyaltyController(loyaltyService, karmaService),
		Referral:     controllers.NewReferralController(referralService),
		Subscription: controllers.NewSubscriptionController(subscriptionService),
		Sponsorship:  controllers.NewSponsorshipController(sponsorService),
		Review:       controllers.NewReviewController(reviewService),
		Challenge:    controllers.NewChallengeController(challengeService),
		FeatureFlag:  controllers.NewFeatureFlagController(flagService),
		Account:      controllers.NewAccountController(accountService, jwtManager),
		Notification: controllers.NewNotificationController(notificationService),
		TTS:          controllers.NewTTSController(ttsService),
		Public: controllers.NewPublicController(sitemapService, controllers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})),
		WebSocket: websocket.Handler(wsHub, websocket.NewUpgrader(cfg.CORSOrigins), jwtManager.Authenticate),
	})

	// Background jobs
	go services.RunPeriodic(ctx, "karma decay", services.KarmaDecayJobInterval, karmaService.ApplyDecay)
	go services.RunPeriodic(ctx, "subscription expiry", services.SubscriptionExpiryJobInterval, subscriptionService.ExpireLapsed)

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	wsHub.Stop()
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Printf("MongoDB disconnect error: %v", err)
	}
}
