// Command ctyserve serves callsign lookups over HTTP.
//
// Usage:
//
//	ctyserve [-config config.toml] [-env-file .env] [--debug]
//
// LOG_LEVEL (DEBUG, INFO, WARN, ERROR, OFF) overrides server.log_level.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"strings"

	"github.com/andreiashu/cty"
	"github.com/andreiashu/cty/internal/config"
	"github.com/andreiashu/cty/internal/httpapi"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to TOML config")
	debug := flag.Bool("debug", false, "enable debug logging")
	envFile := flag.String("env-file", "", "load environment variables from this file")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("Failed to load env file %s: %v", *envFile, err)
		}
	}

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(conf.Server.LogLevel)

	e := echo.New()
	e.HideBanner = true

	e.Logger.SetLevel(logger.Level())
	e.Logger.SetHeader("${time_rfc3339} ${level} ${short_file}:${line} -")

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logMsg := func(format string, args ...any) {
				switch {
				case v.Status >= 500:
					e.Logger.Errorf(format, args...)
				case v.Status >= 400:
					e.Logger.Warnf(format, args...)
				default:
					e.Logger.Infof(format, args...)
				}
			}
			logMsg("%s %s - %d - %.2fms - %s",
				v.Method,
				v.URI,
				v.Status,
				float64(v.Latency.Microseconds())/1000.0,
				v.RemoteIP,
			)
			return nil
		},
	}))
	if *debug {
		e.Logger.Warn("Debug mode is enabled.")
		e.Debug = true
		e.Logger.SetLevel(log.DEBUG)
	}

	e.Use(middleware.Recover())

	client := &http.Client{Timeout: conf.Source.Timeout.Duration}
	var src cty.Source = cty.HTTPSource{URL: conf.Source.URL, Client: client}
	if conf.Source.Path != "" {
		src = cty.FileSource{Path: conf.Source.Path}
	}

	db := cty.New(cty.WithHTTPClient(client), cty.WithLogger(stdlog.New(logger.Output(), "ctyserve: ", stdlog.LstdFlags)))
	if err := db.Reload(context.Background(), src); err != nil {
		logger.Fatalf("Initial load failed: %v", err)
	}

	httpapi.New(db, src).RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Addr))
}

// newLogger builds the service logger. LOG_LEVEL wins over the configured level.
func newLogger(configured string) *log.Logger {
	logger := log.New("ctyserve")
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = strings.ToUpper(configured)
	}
	logger.SetLevel(parseLevel(level))
	logger.SetHeader("${time_rfc3339} ${level} ${short_file}:${line} -")
	return logger
}

func parseLevel(level string) log.Lvl {
	switch level {
	case "DEBUG":
		return log.DEBUG
	case "INFO":
		return log.INFO
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	default:
		return log.INFO
	}
}
