package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ghdir/ghdir/internal/cache"
	"github.com/ghdir/ghdir/internal/config"
	"github.com/ghdir/ghdir/internal/github"
	"github.com/ghdir/ghdir/internal/logging"
	"github.com/ghdir/ghdir/internal/request"
	"github.com/ghdir/ghdir/internal/server"
	"github.com/ghdir/ghdir/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool

	list    bool
	since   int
	perPage int
	users   []string
	forget  string
}

// oneShot 表示本次调用只做一次查询后退出，不启动 HTTP 服务。
func (o cliOptions) oneShot() bool {
	return o.list || len(o.users) > 0 || o.forget != ""
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["api"] = cfg.API.BaseURL
		fields["auth"] = cfg.API.AuthMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 日志 → 磁盘缓存（启动清扫）→ 上游 client → Pipeline → 目录仓库。
	store, err := cache.NewStore(cfg.Global.CacheDir, cache.WithHooks(logging.NewCacheHooks(logger)))
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}
	stats := store.Sweep()
	logger.WithFields(logrus.Fields{
		"action":  "cache_sweep",
		"dir":     store.Dir(),
		"scanned": stats.Scanned,
		"expired": stats.Expired,
		"corrupt": stats.Corrupt,
		"kept":    stats.Kept,
		"temps":   stats.StaleTemps,
	}).Info("缓存清扫完成")

	pipeline, err := request.NewPipeline(request.Options{
		Client:     server.NewUpstreamClient(cfg),
		Store:      store,
		Logger:     logger,
		Workers:    cfg.Global.Workers,
		DefaultTTL: cfg.Global.CacheTTL.DurationValue(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化请求管道失败: %v\n", err)
		return 1
	}
	defer pipeline.Close()

	directory, err := github.NewClient(pipeline, cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化用户目录失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["api"] = cfg.API.BaseURL
	fields["auth"] = cfg.API.AuthMode()
	fields["cache_dir"] = store.Dir()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if opts.oneShot() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runOneShot(ctx, directory, opts)
	}

	if err := startHTTPServer(cfg, directory, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// runOneShot 执行 -list / -user / -forget，结果以 JSON 写到 stdOut。
func runOneShot(ctx context.Context, dir *github.Client, opts cliOptions) int {
	var (
		result any
		err    error
	)

	switch {
	case opts.forget != "":
		err = dir.Forget(opts.forget)
		result = map[string]string{"forgotten": opts.forget}
	case len(opts.users) == 1:
		result, err = dir.UserDetails(ctx, opts.users[0])
	case len(opts.users) > 1:
		result, err = dir.UserDetailsBatch(ctx, opts.users)
	default:
		var users []github.User
		users, err = dir.ListUsers(ctx, opts.perPage, opts.since)
		result = map[string]any{"users": users, "next_since": github.NextSince(users)}
	}

	if err != nil {
		reportFailure(err)
		return 1
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(stdErr, "编码输出失败: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdOut, string(out))
	return 0
}

// reportFailure 按错误类别给出简短提示，可重试的错误额外提示重试。
func reportFailure(err error) {
	var perr request.Error
	if errors.As(err, &perr) && perr.Retryable() {
		fmt.Fprintf(stdErr, "请求失败 (%s): %v，请稍后重试\n", perr.Kind, err)
		return
	}
	fmt.Fprintf(stdErr, "请求失败 (%s): %v\n", request.KindOf(err), err)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("ghdir", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		userFlag   string
		opts       cliOptions
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 GHDIR_CONFIG 覆盖）")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")
	fs.BoolVar(&opts.list, "list", false, "拉取一页用户后退出")
	fs.IntVar(&opts.since, "since", 0, "分页游标，配合 -list 使用")
	fs.IntVar(&opts.perPage, "per-page", 0, "每页用户数，0 表示使用配置值")
	fs.StringVar(&userFlag, "user", "", "拉取用户详情，多个 login 以逗号分隔")
	fs.StringVar(&opts.forget, "forget", "", "删除指定 login 的详情缓存")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if opts.since < 0 {
		return cliOptions{}, fmt.Errorf("since 不能为负数: %d", opts.since)
	}
	if opts.perPage < 0 {
		return cliOptions{}, fmt.Errorf("per-page 不能为负数: %d", opts.perPage)
	}

	for _, login := range strings.Split(userFlag, ",") {
		if login = strings.TrimSpace(login); login != "" {
			opts.users = append(opts.users, login)
		}
	}
	opts.forget = strings.TrimSpace(opts.forget)

	path := os.Getenv("GHDIR_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}
	opts.configPath = path

	return opts, nil
}

func startHTTPServer(cfg *config.Config, directory server.Directory, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:    logger,
		Directory: directory,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
