package http

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"saccobot/internal/entities"
	"saccobot/internal/infrastructure"
	"saccobot/internal/usecases"
)

const replyInternalError = "Sorry, something went wrong. Please try again."

type Handler struct {
	router   *usecases.CommandRouter
	engine   *usecases.AnswerEngine
	queue    *infrastructure.DispatchQueue
	telegram *infrastructure.TelegramClient
	twilio   *infrastructure.TwilioClient
}

func NewHandler(
	router *usecases.CommandRouter,
	engine *usecases.AnswerEngine,
	queue *infrastructure.DispatchQueue,
	telegram *infrastructure.TelegramClient,
	twilio *infrastructure.TwilioClient,
) *Handler {
	return &Handler{
		router:   router,
		engine:   engine,
		queue:    queue,
		telegram: telegram,
		twilio:   twilio,
	}
}

func SetupRoutes(
	r *gin.Engine,
	h *Handler,
	admin *AdminHandler,
	auth *usecases.AuthUsecase,
	middleware *Middleware,
) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size

	// Public routes
	r.GET("/health", h.Health)
	r.POST("/webhook/telegram", h.HandleTelegramWebhook)
	r.POST("/webhook/whatsapp", h.HandleWhatsAppWebhook)

	r.POST("/api/auth/login", func(c *gin.Context) {
		var loginReq struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&loginReq); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		token, err := auth.Login(loginReq.Username, loginReq.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	// Protected admin routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/queue/stats", admin.GetQueueStats)
		api.POST("/knowledge/reload", admin.ReloadKnowledge)
		api.GET("/whatsapp/status", admin.GetWhatsAppStatus)
		api.GET("/whatsapp/qr", admin.GetWhatsAppQR)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleTelegramWebhook processes a bot API update. Commands and active
// flows reply synchronously; free text goes through the answer engine.
func (h *Handler) HandleTelegramWebhook(c *gin.Context) {
	var update struct {
		Message struct {
			Text string `json:"text"`
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	}
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" || update.Message.Chat.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)

	reply, handled, err := h.router.Handle(chatID, NormalizeCommand(text))
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("telegram command handling failed")
		reply = replyInternalError
	} else if !handled {
		reply = h.engine.Resolve("telegram", chatID, text)
	}

	if err := h.telegram.SendMessage(chatID, reply); err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("failed to send telegram reply")
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

func (h *Handler) replyTwiML(c *gin.Context, message string) {
	c.XML(http.StatusOK, twimlResponse{Message: message})
}

// HandleWhatsAppWebhook processes an inbound Twilio message. Commands
// and active flows answer inside the webhook response; free text is
// queued for the worker pool and acknowledged with a job receipt.
func (h *Handler) HandleWhatsAppWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "bad form")
		return
	}

	if h.twilio.Configured() {
		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		scheme := "https"
		if c.Request.TLS == nil && c.GetHeader("X-Forwarded-Proto") != "https" {
			scheme = "http"
		}
		fullURL := scheme + "://" + c.Request.Host + c.Request.RequestURI
		if !h.twilio.ValidateSignature(fullURL, params, c.GetHeader("X-Twilio-Signature")) {
			c.String(http.StatusForbidden, "invalid signature")
			return
		}
	}

	from := c.Request.PostFormValue("From")
	body := strings.TrimSpace(c.Request.PostFormValue("Body"))
	if from == "" || body == "" {
		h.replyTwiML(c, "Please send a text message.")
		return
	}

	reply, handled, err := h.router.Handle(from, NormalizeCommand(body))
	if err != nil {
		log.Error().Err(err).Str("from", from).Msg("whatsapp command handling failed")
		h.replyTwiML(c, replyInternalError)
		return
	}
	if handled {
		h.replyTwiML(c, reply)
		return
	}

	receipt := h.queue.Enqueue(entities.DispatchJob{
		Platform: "whatsapp",
		To:       from,
		Kind:     entities.PayloadNeedsResolution,
		Text:     body,
		Sender:   h.twilio,
	})
	h.replyTwiML(c, formatQueueAck(receipt))
}

func formatQueueAck(r entities.EnqueueReceipt) string {
	eta := r.ETASeconds
	if eta < 1 {
		eta = 1
	}
	return "Received (job " + r.JobID + "). Estimated reply in ~" + strconv.Itoa(eta) + " seconds."
}
