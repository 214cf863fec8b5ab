package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"saccobot/internal/infrastructure"
	"saccobot/internal/repository"
)

// AdminHandler exposes the operator surface: queue visibility, FAQ
// reloads and WhatsApp device pairing.
type AdminHandler struct {
	queue     *infrastructure.DispatchQueue
	knowledge *repository.KnowledgeStore
	faqPath   string
	wa        *infrastructure.WhatsAppClient
}

func NewAdminHandler(
	queue *infrastructure.DispatchQueue,
	knowledge *repository.KnowledgeStore,
	faqPath string,
	wa *infrastructure.WhatsAppClient,
) *AdminHandler {
	return &AdminHandler{
		queue:     queue,
		knowledge: knowledge,
		faqPath:   faqPath,
		wa:        wa,
	}
}

func (h *AdminHandler) GetQueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"depth":   h.queue.Len(),
		"entries": h.knowledge.Len(),
	})
}

// ReloadKnowledge re-reads the FAQ file and swaps the knowledge store
// contents without a restart.
func (h *AdminHandler) ReloadKnowledge(c *gin.Context) {
	entries, err := repository.LoadFAQ(h.faqPath)
	if err != nil {
		log.Error().Err(err).Str("path", h.faqPath).Msg("failed to reload FAQ")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reload FAQ"})
		return
	}
	h.knowledge.Reload(entries)
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "entries": len(entries)})
}

func (h *AdminHandler) GetWhatsAppStatus(c *gin.Context) {
	if h.wa == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "initialized": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected":   h.wa.IsConnected(),
		"initialized": true,
		"logged_in":   h.wa.IsLoggedIn(),
		"hasQR":       h.wa.GetQR() != "",
	})
}

// GetWhatsAppQR returns the pairing QR code as a PNG.
func (h *AdminHandler) GetWhatsAppQR(c *gin.Context) {
	if h.wa == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp device channel not configured")
		return
	}

	qrCodeString := h.wa.GetQR()
	if qrCodeString == "" {
		if h.wa.IsLoggedIn() {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(qrCodeString, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
