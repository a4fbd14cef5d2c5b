package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/buyukakyuz/bpx"
	"github.com/buyukakyuz/bpx/bpxlog"
	"github.com/buyukakyuz/bpx/bpxserver"
	"github.com/buyukakyuz/bpx/internal/httpkit"
	"github.com/buyukakyuz/bpx/internal/httpkit/middleware/accesslog"
	"github.com/buyukakyuz/bpx/internal/httpkit/middleware/cors"
	"github.com/buyukakyuz/bpx/internal/httpkit/middleware/ratelimit"
	"github.com/buyukakyuz/bpx/protocol"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the BPX demo server",
	Example: "# bpxserver serve --config bpx.yaml",
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "bpx.yaml", "Configuration file path")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	fileCfg, err := bpxserver.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	bpxlog.SetOptions(fileCfg.Logging)
	logger := bpxlog.New(fileCfg.Logging)

	srv, err := bpxserver.NewBuilder().
		WithConfig(fileCfg.ToCoreConfig()).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build bpx server: %w", err)
	}
	seedDemoResources(srv)
	srv.StartCleanupLoop()
	defer srv.Stop()

	app := httpkit.New()
	app.Use(accesslog.New())
	registerRoutes(app, srv)

	errCh := make(chan error, 1)
	go func() {
		bpxlog.Infof("bpx server listening on %s", fileCfg.ListenAddr)
		errCh <- app.Listen(fileCfg.ListenAddr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-sig:
		bpxlog.Infof("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.Shutdown(ctx)
	}
}

func registerRoutes(app *httpkit.Server, srv *bpxserver.Server) {
	app.GET("/health", func(c *httpkit.Ctx) {
		c.JSON(map[string]string{"status": "ok"})
	})

	app.GET("/stats", func(c *httpkit.Ctx) {
		stats := map[string]int{}
		if resources, ok := srv.Resources().(interface {
			ResourceCount() int
			VersionCount() int
		}); ok {
			stats["resources"] = resources.ResourceCount()
			stats["versions"] = resources.VersionCount()
		}
		if sessions, ok := srv.Sessions().(interface{ SessionCount() int }); ok {
			stats["sessions"] = sessions.SessionCount()
		}
		c.JSON(stats)
	})

	demo := app.Group("/demo")
	demo.Use(cors.New())
	demo.POST("/update", func(c *httpkit.Ctx) {
		var body struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		if err := c.BindJSON(&body); err != nil {
			c.Status(httpkit.StatusBadRequest).JSON(map[string]string{"error": err.Error()})
			return
		}
		srv.Resources().SetResource(bpx.NewResourcePath(body.Path), []byte(body.Content))
		c.Status(httpkit.StatusNoContent)
	})

	poll := app.Group("/api")
	poll.Use(cors.New())
	poll.Use(adaptErrMiddleware(ratelimit.New()))
	poll.GET("/*", func(c *httpkit.Ctx) {
		req := protocol.ParseRequest(requestSource{c})
		resp, err := srv.HandleRequest(req)
		if err != nil {
			if kind, ok := bpx.KindOf(err); ok && kind == bpx.ClientStateNotFound {
				c.Status(httpkit.StatusNotFound).JSON(map[string]string{"error": err.Error()})
				return
			}
			c.Status(httpkit.StatusInternalServerError).JSON(map[string]string{"error": err.Error()})
			return
		}
		for k, v := range protocol.ResponseHeaders(resp) {
			c.Set(k, v)
		}
		c.Data("application/octet-stream", resp.Body.Data)
	})
}

// adaptErrMiddleware bridges the error-returning middleware signature
// used by ratelimit and basicauth onto the plain httpkit.Middleware
// shape a Group.Use accepts.
func adaptErrMiddleware(m func(c *httpkit.Ctx) error) httpkit.Middleware {
	return func(c *httpkit.Ctx) {
		if err := m(c); err != nil {
			c.Error(err)
		}
	}
}

// requestSource serves protocol.RequestSource from the request path and
// request headers of c (Ctx.Get reads response headers).
type requestSource struct{ c *httpkit.Ctx }

func (r requestSource) Path() string          { return r.c.Path() }
func (r requestSource) Get(key string) string { return r.c.Request.Header.Get(key) }

func seedDemoResources(srv *bpxserver.Server) {
	srv.Resources().SetResource(bpx.NewResourcePath("/api/logs/server"), []byte("server started\n"))
	srv.Resources().SetResource(bpx.NewResourcePath("/api/dashboard/metrics"), []byte(`{"requests":0,"errors":0}`))
	srv.Resources().SetResource(bpx.NewResourcePath("/api/documents/collaborative"), []byte(`{"title":"untitled","body":""}`))
}
