package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// OutputManager owns the timestamped directory a conversion run writes to,
// including the run's log file.
type OutputManager struct {
	baseDir   string
	timestamp string
	logFile   *os.File
	log       zerolog.Logger
}

// NewOutputManager creates <baseDir>/<timestamp>/logs/app.log and returns a
// manager whose logger writes to both console and the log file.
func NewOutputManager(baseDir string, level zerolog.Level, console io.Writer) (*OutputManager, error) {
	timestamp := time.Now().Format("20060102_150405")

	outputPath := filepath.Join(baseDir, timestamp)
	logsDir := filepath.Join(outputPath, "logs")
	if err := os.MkdirAll(logsDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logFile, err := os.Create(filepath.Join(logsDir, "app.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	consoleWriter := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = console
	})
	multiWriter := zerolog.MultiLevelWriter(consoleWriter, logFile)

	combinedLogger := zerolog.New(multiWriter).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	return &OutputManager{
		baseDir:   outputPath,
		timestamp: timestamp,
		logFile:   logFile,
		log:       combinedLogger,
	}, nil
}

// WriteToJSON writes data to <prefix>_<timestamp>.json and returns its path.
func (om *OutputManager) WriteToJSON(data interface{}, prefix string) (string, error) {
	filename := fmt.Sprintf("%s_%s.json", prefix, om.timestamp)
	outputPath := filepath.Join(om.baseDir, filename)

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return "", fmt.Errorf("failed to encode data to JSON: %w", err)
	}

	om.log.Debug().
		Str("file", outputPath).
		Str("prefix", prefix).
		Msg("Wrote data to JSON file")
	return outputPath, nil
}

// WriteText writes content to filename in the output directory.
func (om *OutputManager) WriteText(content, filename string) (string, error) {
	outputPath := filepath.Join(om.baseDir, filename)
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}

	om.log.Debug().
		Str("file", outputPath).
		Int("bytes", len(content)).
		Msg("Wrote text file")
	return outputPath, nil
}

// GetLogger returns the console and file logger.
func (om *OutputManager) GetLogger() zerolog.Logger {
	return om.log
}

func (om *OutputManager) GetOutputPath(filename string) string {
	return filepath.Join(om.baseDir, filename)
}

func (om *OutputManager) GetTimestamp() string {
	return om.timestamp
}

func (om *OutputManager) GetBaseDir() string {
	return om.baseDir
}

// Close closes the log file.
func (om *OutputManager) Close() error {
	return om.logFile.Close()
}
