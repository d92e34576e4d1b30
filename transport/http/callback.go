package http

import (
	"net/http"

	"github.com/bahodir0902/blogclient/ports"
	"github.com/gin-gonic/gin"
)

// CallbackHandlers completes the account flows that end in a browser
// redirect: social login and registration verification. Both exchange a
// one-time code for a credential pair and install it into the session.
type CallbackHandlers struct {
	sessions CredentialSink
	accounts ports.AccountAPI
	appURL   string
}

// NewCallbackHandlers creates the handlers. appURL is where the browser is
// sent once the session is established.
func NewCallbackHandlers(sessions CredentialSink, accounts ports.AccountAPI, appURL string) *CallbackHandlers {
	return &CallbackHandlers{sessions: sessions, accounts: accounts, appURL: appURL}
}

// Social handles the provider redirect: GET /auth/callback/:provider?code=...
func (h *CallbackHandlers) Social(c *gin.Context) {
	provider := c.Param("provider")
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	pair, err := h.accounts.SocialExchange(c.Request.Context(), provider, code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "social login exchange failed"})
		return
	}

	if err := h.sessions.SetCredentials(c.Request.Context(), pair.Access, pair.Refresh); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to install credentials"})
		return
	}

	c.Redirect(http.StatusFound, h.appURL)
}

// Verify handles the emailed registration link: GET /auth/verify?token=...
func (h *CallbackHandlers) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing verification token"})
		return
	}

	pair, err := h.accounts.VerifyRegistration(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification failed"})
		return
	}

	if err := h.sessions.SetCredentials(c.Request.Context(), pair.Access, pair.Refresh); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to install credentials"})
		return
	}

	c.Redirect(http.StatusFound, h.appURL)
}
