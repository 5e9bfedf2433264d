package hidcli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hidtoolkit/hidprobe/hidusage"
	"github.com/hidtoolkit/hidprobe/internal/hidsvc"
)

type Config struct {
	DataDir    string
	UsageNames string
	Verbose    bool
}

// App wires the logger, the device registry database and the HID service
// for the command tree.
type App struct {
	config Config
	log    *zap.Logger
	db     *badger.DB
	hid    *hidsvc.Service
}

func newApp(config Config) (*App, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !config.Verbose {
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = badgerLogger{l: logger.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open device registry: %w", err)
	}

	if config.UsageNames != "" {
		if err := hidusage.LoadOverrides(config.UsageNames); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			logger.Debug("no usage name overrides", zap.String("path", config.UsageNames))
		}
	}

	return &App{
		config: config,
		log:    logger,
		db:     db,
		hid:    hidsvc.New(logger.Named("hid"), db, time.Now),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}
