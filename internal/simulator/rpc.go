package simulator

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yaroslav/nassession/models"
	"github.com/yaroslav/nassession/pkg/token"
	"github.com/yaroslav/nassession/sdk"
)

// handleRPC dispatches one JSON-RPC request.
func (a *Appliance) handleRPC(c *gin.Context) {
	var req sdk.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "malformed request", Code: "INVALID_REQUEST"})
		return
	}

	sessionID := c.GetHeader(sdk.HeaderSessionID)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls[req.Method]++

	if failure, ok := a.failures[req.Method]; ok {
		a.respondError(c, req, failure.code, failure.message)
		return
	}

	_, authenticated := a.sessions[sessionID]

	switch req.Method {
	case sdk.MethodPing:
		a.respond(c, req, "pong")

	case sdk.MethodHasRootPassword:
		a.respond(c, req, a.passwordHash != nil)

	case sdk.MethodFailoverStatus:
		a.respond(c, req, a.status)

	case sdk.MethodFailoverIPs:
		ips := a.ips
		if ips == nil {
			ips = []string{}
		}
		a.respond(c, req, ips)

	case sdk.MethodFailoverDisabledReasons:
		reasons := a.reasons
		if reasons == nil {
			reasons = []models.DisabledReason{}
		}
		a.respond(c, req, reasons)

	case sdk.MethodLogin:
		username, _ := param[string](req, 0)
		password, _ := param[string](req, 1)
		ok := username == a.username && a.passwordHash != nil &&
			bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
		if ok {
			c.Header(sdk.HeaderSessionID, a.newSessionLocked())
		}
		a.logger.Info("password login", zap.Bool("accepted", ok))
		a.respond(c, req, ok)

	case sdk.MethodLoginWithToken:
		presented, _ := param[string](req, 0)
		ok := a.checkTokenLocked(presented)
		if ok {
			c.Header(sdk.HeaderSessionID, a.newSessionLocked())
		}
		a.logger.Info("token login",
			zap.String("token", token.Redact(presented)),
			zap.Bool("accepted", ok),
		)
		a.respond(c, req, ok)

	case sdk.MethodGenerateToken:
		if !authenticated {
			a.respondError(c, req, sdk.CodeNotAuthenticated, "Not authenticated")
			return
		}
		if a.emptyTokens {
			a.respond(c, req, "")
			return
		}
		seconds, ok := param[float64](req, 0)
		if !ok || seconds <= 0 {
			a.respondError(c, req, sdk.CodeInvalidParams, "ttl must be a positive number of seconds")
			return
		}
		tok, err := a.issueTokenLocked(time.Duration(seconds) * time.Second)
		if err != nil {
			a.respondError(c, req, sdk.CodeInternal, err.Error())
			return
		}
		a.respond(c, req, tok)

	case sdk.MethodLogout:
		delete(a.sessions, sessionID)
		a.respond(c, req, true)

	default:
		a.respondError(c, req, sdk.CodeMethodNotFound, "Method does not exist")
	}
}

// checkTokenLocked validates an issued, unexpired token.
func (a *Appliance) checkTokenLocked(presented string) bool {
	if token.ValidateLength(presented) != nil {
		return false
	}

	hash := token.Hash(presented, a.secret)
	issued, ok := a.tokens[hash]
	if !ok {
		return false
	}
	if !a.now().Before(issued.expiresAt) {
		delete(a.tokens, hash)
		return false
	}
	return token.Validate(presented, a.secret, hash)
}

func (a *Appliance) respond(c *gin.Context, req sdk.Request, result any) {
	c.JSON(http.StatusOK, gin.H{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func (a *Appliance) respondError(c *gin.Context, req sdk.Request, code int, message string) {
	c.JSON(http.StatusOK, sdk.Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error:   &sdk.RPCError{Code: code, Message: message},
	})
}

// param returns positional parameter i as T.
func param[T any](req sdk.Request, i int) (T, bool) {
	var zero T
	if i >= len(req.Params) {
		return zero, false
	}
	v, ok := req.Params[i].(T)
	return v, ok
}
