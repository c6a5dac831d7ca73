// Package fixture serves small pages whose DOM changes after a delay, for
// exercising element waits against a real browser.
package fixture

import (
	"context"
	"html/template"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	maxDelayMillis = 60000
	maxRows        = 1000
)

var elementIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// SuccessResponse is the JSON body of successful API calls.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the JSON body of failed API calls.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

var pages = template.Must(template.New("pages").Parse(`
{{define "static"}}<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1 id="title">{{.Title}}</h1>
<p class="intro">{{.Body}}</p>
</body>
</html>{{end}}

{{define "delayed"}}<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1 id="title">{{.Title}}</h1>
<div id="container"></div>
<script>
setTimeout(function () {
	var el = document.createElement("div");
	el.id = {{.ID}};
	el.textContent = {{.Text}};
	document.getElementById("container").appendChild(el);
}, {{.Delay}});
</script>
</body>
</html>{{end}}

{{define "rows"}}<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1 id="title">{{.Title}}</h1>
<div id="container"></div>
<script>
setTimeout(function () {
	var container = document.getElementById("container");
	for (var i = 1; i <= {{.Count}}; i++) {
		var row = document.createElement("div");
		row.className = "row";
		row.textContent = "row " + i;
		container.appendChild(row);
	}
}, {{.Delay}});
</script>
</body>
</html>{{end}}
`))

// New returns the fixture application.
func New() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(pages)

	r.GET("/health", healthHandler)
	r.GET("/page", staticPageHandler)
	r.GET("/delayed", delayedHandler)
	r.GET("/rows", rowsHandler)

	return r
}

// Serve runs the fixture application on addr and returns its base URL. The
// server stops when ctx is done.
func Serve(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "listen on %s", addr)
	}

	srv := &http.Server{
		Handler:           New(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("fixture server stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	baseURL := "http://" + ln.Addr().String()
	logrus.Infof("fixture server listening on %s", baseURL)
	return baseURL, nil
}

func respondError(c *gin.Context, statusCode int, code, message string, details any) {
	logrus.Warnf("%s %s %d", c.Request.Method, c.Request.URL.Path, statusCode)

	c.JSON(statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func respondSuccess(c *gin.Context, data any, message string) {
	logrus.Debugf("%s %s %d", c.Request.Method, c.Request.URL.Path, http.StatusOK)

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

func healthHandler(c *gin.Context) {
	respondSuccess(c, map[string]any{
		"status":  "healthy",
		"service": "spunkfix-fixture",
	}, "ok")
}

func staticPageHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "static", gin.H{
		"Title": c.DefaultQuery("title", "Fixture"),
		"Body":  c.DefaultQuery("body", "static fixture page"),
	})
}

func delayedHandler(c *gin.Context) {
	delay, ok := intQuery(c, "delay", 0, 0, maxDelayMillis)
	if !ok {
		return
	}

	id := c.DefaultQuery("id", "status")
	if !elementIDPattern.MatchString(id) {
		respondError(c, http.StatusBadRequest, "INVALID_ID",
			"invalid element id", id)
		return
	}

	c.HTML(http.StatusOK, "delayed", gin.H{
		"Title": "Delayed element",
		"ID":    id,
		"Text":  c.DefaultQuery("text", "ready"),
		"Delay": delay,
	})
}

func rowsHandler(c *gin.Context) {
	delay, ok := intQuery(c, "delay", 0, 0, maxDelayMillis)
	if !ok {
		return
	}
	count, ok := intQuery(c, "count", 1, 0, maxRows)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "rows", gin.H{
		"Title": "Delayed rows",
		"Count": count,
		"Delay": delay,
	})
}

// intQuery reads an integer query parameter within [min, max], responding
// with 400 and returning false when it is malformed.
func intQuery(c *gin.Context, key string, def, min, max int) (int, bool) {
	raw, present := c.GetQuery(key)
	if !present || raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		respondError(c, http.StatusBadRequest, "INVALID_PARAMETER",
			"invalid "+key, gin.H{"value": raw, "min": min, "max": max})
		return 0, false
	}
	return v, true
}
