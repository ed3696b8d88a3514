package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blimu-dev/webapi/pkg/client"
)

const shellHelp = `commands:
  classes                          list classes and their constructor arguments
  new NAME CLASS [k=v ...]         construct an instance and name it
  methods NAME                     list the methods of an instance
  call NAME METHOD [k=v ...]       call a method and print the result
  forget NAME METHOD [k=v ...]     drop the cached response of one call
  clear NAME                       drop the cached responses of an instance
  instances                        list constructed instances
  help                             show this help
  quit                             leave the shell
`

var errQuit = errors.New("quit")

// Shell is an interactive session over one compiled API. Instances and their
// caches live until the session ends.
type Shell struct {
	env       *Env
	api       *client.API
	instances map[string]*client.Instance
}

// NewShell creates a session over api.
func NewShell(env *Env, api *client.API) *Shell {
	return &Shell{env: env, api: api, instances: map[string]*client.Instance{}}
}

// RunShell opens the schema and reads commands from env.In until quit or EOF.
// metricsAddr, when set, serves /metrics for the session.
func RunShell(ctx context.Context, env *Env, schema, metricsAddr string) error {
	api, release, err := env.Open(ctx, schema)
	if err != nil {
		return err
	}
	defer release()

	if metricsAddr == "" {
		metricsAddr = env.Settings.MetricsAddr
	}
	if metricsAddr != "" {
		stop, err := serveMetrics(env, metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	return NewShell(env, api).Run(ctx)
}

// Run executes commands line by line. Command errors are printed and the
// session continues.
func (s *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.env.In)
	fmt.Fprint(s.env.Out, "> ")
	for scanner.Scan() {
		err := s.Exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.env.Out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(s.env.Out, "> ")
	}
	return scanner.Err()
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	cmd, rest := words[0], words[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprint(s.env.Out, shellHelp)
	case "quit", "exit":
		return errQuit
	case "classes":
		for _, name := range s.api.Names() {
			c, _ := s.api.Class(name)
			fmt.Fprintf(s.env.Out, "%s(%s)\n", name, strings.Join(c.Arguments(), ", "))
		}
	case "instances":
		names := make([]string, 0, len(s.instances))
		for n := range s.instances {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(s.env.Out, "%s: %s %s\n", n, s.instances[n].Class(), s.instances[n].ID())
		}
	case "new":
		if len(rest) < 2 {
			return errors.New("usage: new NAME CLASS [k=v ...]")
		}
		args, err := ParseAssignments(rest[2:])
		if err != nil {
			return err
		}
		inst, err := s.api.New(rest[1], args)
		if err != nil {
			return err
		}
		s.instances[rest[0]] = inst
		fmt.Fprintf(s.env.Out, "%s = %s(%s)\n", rest[0], inst.Class(), inst.ID())
	case "methods":
		inst, err := s.instance(rest)
		if err != nil {
			return err
		}
		for _, m := range inst.Methods() {
			fmt.Fprintln(s.env.Out, m)
		}
	case "call":
		inst, err := s.instance(rest)
		if err != nil {
			return err
		}
		if len(rest) < 2 {
			return errors.New("usage: call NAME METHOD [k=v ...]")
		}
		args, err := ParseAssignments(rest[2:])
		if err != nil {
			return err
		}
		result, err := inst.Call(ctx, rest[1], args)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintln(s.env.Out, "ok")
			return nil
		}
		return printJSON(s.env, result)
	case "forget":
		inst, err := s.instance(rest)
		if err != nil {
			return err
		}
		if len(rest) < 2 {
			return errors.New("usage: forget NAME METHOD [k=v ...]")
		}
		args, err := ParseAssignments(rest[2:])
		if err != nil {
			return err
		}
		return inst.Forget(ctx, rest[1], args)
	case "clear":
		inst, err := s.instance(rest)
		if err != nil {
			return err
		}
		return inst.ClearCache(ctx)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (s *Shell) instance(rest []string) (*client.Instance, error) {
	if len(rest) == 0 {
		return nil, errors.New("missing instance name")
	}
	inst, ok := s.instances[rest[0]]
	if !ok {
		return nil, fmt.Errorf("no instance named %q", rest[0])
	}
	return inst, nil
}

// serveMetrics exposes the env's registry on addr until the returned func is
// called.
func serveMetrics(env *Env, addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(env.Registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	env.Logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
