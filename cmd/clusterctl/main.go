// Command clusterctl is the dlsh admin CLI: it can spawn a local cluster
// of dlsh-worker processes for smoke-testing, or act as a thin HTTP
// client against a running control plane (pkg/control) to submit jobs
// and poll their status.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lshknn/dlsh/pkg/control"
	"github.com/lshknn/dlsh/pkg/control/middleware"
	"github.com/lshknn/dlsh/pkg/observability"
)

const version = "0.1.0"

var (
	controlAddr string
	token       string
	timeout     time.Duration
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "run":
		handleRun(os.Args[2:])
	case "serve":
		handleServe(os.Args[2:])
	case "submit":
		handleSubmit(os.Args[2:])
	case "status":
		handleStatus(os.Args[2:])
	case "jobs":
		handleJobs(os.Args[2:])
	case "cancel":
		handleCancel(os.Args[2:])
	case "health":
		handleHealth(os.Args[2:])
	case "version":
		fmt.Printf("clusterctl version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

// handleRun spawns world_size local dlsh-worker subprocesses as a smoke
// test, each bound to 127.0.0.1 on consecutive ports, forwarding every
// remaining flag (the LSH options) to each one verbatim.
func handleRun(args []string) {
	var (
		workerBin string
		worldSize = 1
		basePort  = 9000
	)
	passthrough := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--worker_bin":
			i++
			workerBin = args[i]
		case "--world_size":
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				fmt.Printf("invalid --world_size: %v\n", err)
				os.Exit(1)
			}
			worldSize = n
		case "--base_port":
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				fmt.Printf("invalid --base_port: %v\n", err)
				os.Exit(1)
			}
			basePort = n
		default:
			passthrough = append(passthrough, args[i])
		}
	}
	if workerBin == "" {
		workerBin = "./dlsh-worker"
	}

	addrs := make([]string, worldSize)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("127.0.0.1:%d", basePort+i)
	}
	addrsCSV := strings.Join(addrs, ",")

	procs := make([]*exec.Cmd, worldSize)
	for rank := 0; rank < worldSize; rank++ {
		workerArgs := append([]string{
			"--rank", strconv.Itoa(rank),
			"--world_size", strconv.Itoa(worldSize),
			"--addrs", addrsCSV,
		}, passthrough...)

		cmd := exec.Command(workerBin, workerArgs...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			fmt.Printf("rank %d failed to start: %v\n", rank, err)
			os.Exit(1)
		}
		procs[rank] = cmd
	}

	exitCode := 0
	for rank, cmd := range procs {
		if err := cmd.Wait(); err != nil {
			fmt.Printf("rank %d exited with error: %v\n", rank, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// handleServe hosts the job-submission control plane: clusterctl submit,
// status, jobs, and cancel talk to it over HTTP.
func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "0.0.0.0", "listen host")
	port := fs.Int("port", 8080, "listen port")
	jwtSecret := fs.String("jwt_secret", "", "JWT signing secret; auth is disabled if empty")
	rateLimitRPS := fs.Float64("rate_limit_rps", 10, "per-client requests/sec; 0 disables rate limiting")
	rateLimitBurst := fs.Int("rate_limit_burst", 20, "per-client burst size")
	fs.Parse(args)

	authEnabled := *jwtSecret != ""
	cfg := control.Config{
		Host: *host,
		Port: *port,
		Auth: middleware.AuthConfig{
			Enabled:      authEnabled,
			JWTSecret:    *jwtSecret,
			PublicPaths:  []string{"/v1/health"},
			AdminPaths:   []string{"/v1/jobs"},
			RequireAdmin: true,
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        *rateLimitRPS > 0,
			RequestsPerSec: *rateLimitRPS,
			Burst:          *rateLimitBurst,
			PerUser:        true,
		},
	}

	log := observability.NewDefaultLogger()
	metrics := observability.NewMetrics()
	registry := control.NewRegistry()
	server := control.NewServer(cfg, registry, log, metrics)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Printf("control plane exited: %v\n", err)
			os.Exit(1)
		}
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			fmt.Printf("error during shutdown: %v\n", err)
			os.Exit(1)
		}
	}
}

func handleSubmit(args []string) {
	fs := newClientFlagSet("submit")
	fs.Parse(args)
	workerArgs := fs.Args()

	body, _ := json.Marshal(map[string]interface{}{"args": workerArgs})
	resp, err := doRequest(http.MethodPost, "/v1/jobs", body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp)
}

func handleStatus(args []string) {
	fs := newClientFlagSet("status")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Error: job id is required")
		os.Exit(1)
	}
	resp, err := doRequest(http.MethodGet, "/v1/jobs/"+fs.Arg(0), nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp)
}

func handleJobs(args []string) {
	fs := newClientFlagSet("jobs")
	fs.Parse(args)
	resp, err := doRequest(http.MethodGet, "/v1/jobs", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp)
}

func handleCancel(args []string) {
	fs := newClientFlagSet("cancel")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Error: job id is required")
		os.Exit(1)
	}
	resp, err := doRequest(http.MethodPost, "/v1/jobs/"+fs.Arg(0)+"/cancel", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp)
}

func handleHealth(args []string) {
	fs := newClientFlagSet("health")
	fs.Parse(args)
	resp, err := doRequest(http.MethodGet, "/v1/health", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp)
}

// newClientFlagSet registers the control-plane connection flags every
// HTTP-client subcommand shares, mirroring the teacher's cmd/cli global
// -server/-namespace/-timeout flags registered per subcommand.
func newClientFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&controlAddr, "control", "localhost:8080", "control-plane address")
	fs.StringVar(&token, "token", "", "bearer token for authenticated requests")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return fs
}

func doRequest(method, path string, body []byte) (string, error) {
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequest(method, "http://"+controlAddr+path, reader)
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("control plane returned %d: %s", resp.StatusCode, string(respBody))
	}
	return string(respBody), nil
}

func showUsage() {
	fmt.Println(`clusterctl - admin CLI for a dlsh cluster

Usage:
  clusterctl <command> [options]

Commands:
  run       Spawn a local worker cluster for smoke-testing
              --worker_bin PATH   path to the dlsh-worker binary (default ./dlsh-worker)
              --world_size N      number of local workers to spawn (default 1)
              --base_port PORT    first rank's ring port; ranks get PORT, PORT+1, ... (default 9000)
              -- everything else is forwarded verbatim to every worker as LSH options
  serve     Host the REST control plane for job submission and polling
              --host HOST              listen host (default 0.0.0.0)
              --port PORT              listen port (default 8080)
              --jwt_secret SECRET      enables JWT auth when set
              --rate_limit_rps N       per-client requests/sec (default 10; 0 disables)
              --rate_limit_burst N     per-client burst size (default 20)
  submit    Submit a job to a running control plane (remaining args become worker options)
  status    Get a submitted job's status by ID
  jobs      List all submitted jobs
  cancel    Cancel a pending or running job by ID
  health    Check the control plane's health
  version   Show version
  help      Show this help message

Global Options:
  -control ADDRESS   control-plane address (default: localhost:8080)
  -token TOKEN       bearer token for authenticated control-plane requests
  -timeout DURATION  request timeout (default: 10s)

Examples:
  clusterctl run --world_size 4 --base_port 9100 --data_file points.bin --k 10
  clusterctl submit -control localhost:8080 -token $TOKEN --data_file points.bin --k 10
  clusterctl status -control localhost:8080 job-1
  clusterctl jobs -control localhost:8080`)
}
