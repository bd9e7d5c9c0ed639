package main

import (
	"context"
	"net"
	"strings"
	"sync"

	"fabline/internal/api"
	"fabline/internal/config"
	"fabline/internal/logging"
	"fabline/internal/store"
	"fabline/internal/workflow"
)

// jobAPI is the surface shared by the HTTP client and the direct-store
// service, so commands work whether or not the daemon is running.
type jobAPI interface {
	List(ctx context.Context, stage string) ([]api.JobView, error)
	Describe(ctx context.Context, id string) (*api.JobView, error)
	Create(ctx context.Context, req api.CreateJobRequest) (*api.JobView, error)
	Transition(ctx context.Context, jobID string, req api.TransitionRequest) (*api.TransitionResponse, error)
	Stats(ctx context.Context) (map[string]int, error)
}

type commandContext struct {
	addrFlag   *string
	tokenFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		tokenFlag:  tokenFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddr(cfg *config.Config) string {
	if c.addrFlag != nil {
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			return addr
		}
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return ""
	}
	// A wildcard bind is still reachable on loopback.
	if host, port, err := net.SplitHostPort(bind); err == nil && (host == "" || host == "0.0.0.0" || host == "::") {
		return net.JoinHostPort("127.0.0.1", port)
	}
	return bind
}

func (c *commandContext) apiToken(cfg *config.Config) string {
	if c.tokenFlag != nil {
		if token := strings.TrimSpace(*c.tokenFlag); token != "" {
			return token
		}
	}
	return cfg.Paths.APIToken
}

// client returns a daemon API client, without checking reachability.
func (c *commandContext) client() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(c.apiAddr(cfg), c.apiToken(cfg)), nil
}

// withJobs runs fn against the daemon when reachable, otherwise against the
// store directly.
func (c *commandContext) withJobs(ctx context.Context, fn func(jobAPI) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	client := api.NewClient(c.apiAddr(cfg), c.apiToken(cfg))
	if err := client.Ping(ctx); err == nil {
		return fn(client)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	mgr := workflow.NewManager(cfg, st, logging.NewNop())
	return fn(api.NewJobService(mgr))
}
