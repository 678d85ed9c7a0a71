package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/payment"
)

type PaymentURIGetter interface {
	GetPaymentURI(paymentID string) (string, bool)
}

type Server struct {
	srv *http.Server
}

func New(port string, state PaymentURIGetter, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/qr/:paymentID", func(c *gin.Context) {
		uri, ok := state.GetPaymentURI(c.Param("paymentID"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		png, err := payment.QRPNG(uri)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	return &Server{
		srv: &http.Server{
			Addr:    ":" + port,
			Handler: router,
		},
	}
}

func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
}
