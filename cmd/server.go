package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/bandscore/config"
	"github.com/lshigami/bandscore/database"
	_ "github.com/lshigami/bandscore/docs"
	adminctrl "github.com/lshigami/bandscore/internal/controller/admin"
	userctrl "github.com/lshigami/bandscore/internal/controller/user"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				coreModule,
				fx.Provide(NewGinEngine),
				fx.Provide(
					userctrl.NewExamController,
					userctrl.NewAttemptController,
					adminctrl.NewExamController,
					adminctrl.NewGradingController,
				),
				fx.Invoke(AutoMigrateDB),
				fx.Invoke(RegisterRoutesAndStartServer),
			)
			if err := app.Start(context.Background()); err != nil {
				return err
			}
			<-app.Done()
			log.Info().Msg("Application shutting down gracefully...")
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
	cmd.Flags().String("port", "", "HTTP listen port")
	cmd.Flags().Bool("auto-migrate", true, "Run migrations before serving")
	if err := viper.BindPFlag("SERVER_PORT", cmd.Flags().Lookup("port")); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind port flag")
	}
	if err := viper.BindPFlag("AUTO_MIGRATE", cmd.Flags().Lookup("auto-migrate")); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind auto-migrate flag")
	}
	return cmd
}

func AutoMigrateDB(db *gorm.DB) error {
	if !viper.GetBool("AUTO_MIGRATE") {
		log.Info().Msg("Auto migration disabled")
		return nil
	}
	return database.Migrate(db)
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}

// RegisterRoutes mounts every API handler on the engine.
func RegisterRoutes(
	router *gin.Engine,
	examCtrl *userctrl.ExamController,
	attemptCtrl *userctrl.AttemptController,
	adminExamCtrl *adminctrl.ExamController,
	gradingCtrl *adminctrl.GradingController,
) {
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/exams", adminExamCtrl.ImportExam)
		adminAPIGroup.GET("/grading/pending", gradingCtrl.ListPending)
		adminAPIGroup.POST("/attempts/:attempt_id/answers/:question_id/grade", gradingCtrl.GradeAnswer)
		adminAPIGroup.GET("/attempts/:attempt_id/answers/:question_id/suggestion", gradingCtrl.SuggestGrade)
		adminAPIGroup.GET("/attempts/:attempt_id/suggestions", gradingCtrl.SuggestAttempt)
	}

	userAPIGroup := router.Group("/api/v1")
	{
		userAPIGroup.GET("/exams", examCtrl.ListExams)
		userAPIGroup.GET("/exams/:exam_id", examCtrl.GetExam)
		userAPIGroup.POST("/exams/:exam_id/attempts", attemptCtrl.CreateAttempt)

		userAPIGroup.GET("/attempts/:attempt_id", attemptCtrl.GetAttempt)
		userAPIGroup.PUT("/attempts/:attempt_id/answers/:question_id", attemptCtrl.RecordAnswer)
		userAPIGroup.POST("/attempts/:attempt_id/submit", attemptCtrl.SubmitAttempt)
		userAPIGroup.GET("/attempts/:attempt_id/summary", attemptCtrl.GetSummary)
		userAPIGroup.GET("/users/:user_id/attempts", attemptCtrl.ListUserAttempts)
	}
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	examCtrl *userctrl.ExamController,
	attemptCtrl *userctrl.AttemptController,
	adminExamCtrl *adminctrl.ExamController,
	gradingCtrl *adminctrl.GradingController,
) {
	RegisterRoutes(router, examCtrl, attemptCtrl, adminExamCtrl, gradingCtrl)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("BandScore API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			return server.Shutdown(ctx)
		},
	})
}
