package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	sourceName        = "telegram"
	fetchTimeout      = 2 * time.Minute
	maxLineLength     = 1 << 20 // 1 MiB per JSONL line
	defaultPythonPath = "python3"
)

// TelegramOptions configures the Telethon collector invocation.
type TelegramOptions struct {
	ScriptPath string // path to collector_telegram.py
	PythonPath string // interpreter, defaults to python3
	APIID      string
	APIHash    string
	SessionDir string
}

// TelegramSource fetches channel messages via a Python helper script.
type TelegramSource struct {
	opts TelegramOptions
}

// NewTelegram creates a Telegram source. The script receives API credentials
// on the command line and prints one JSON object per message.
func NewTelegram(opts TelegramOptions) (*TelegramSource, error) {
	if strings.TrimSpace(opts.ScriptPath) == "" {
		return nil, errors.New("telegram: script path is required")
	}
	if strings.TrimSpace(opts.PythonPath) == "" {
		opts.PythonPath = defaultPythonPath
	}
	return &TelegramSource{opts: opts}, nil
}

// Name returns "telegram".
func (ts *TelegramSource) Name() string {
	return sourceName
}

// Fetch invokes the collector for one channel and parses its JSONL output.
func (ts *TelegramSource) Fetch(ctx context.Context, account string, maxCount int) ([]Post, error) {
	if maxCount <= 0 {
		return []Post{}, nil
	}
	channel := strings.TrimSpace(account)
	if channel == "" {
		return nil, errors.New("telegram: channel is required")
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	args := []string{
		ts.opts.ScriptPath,
		"--api-id", ts.opts.APIID,
		"--api-hash", ts.opts.APIHash,
		"--session-dir", ts.opts.SessionDir,
		"--channel", channel,
		"--limit", strconv.Itoa(maxCount),
	}

	cmd := exec.CommandContext(ctx, ts.opts.PythonPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("telegram: stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("telegram: %s not found: install Python 3 and Telethon to use telegram source", ts.opts.PythonPath)
		}
		return nil, fmt.Errorf("telegram: start collector: %w", err)
	}

	posts, parseErr := parseJSONL(stdout)
	if parseErr != nil {
		// Drain so Wait does not block on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg != "" {
			return nil, fmt.Errorf("telegram: collector failed: %s", errMsg)
		}
		return nil, fmt.Errorf("telegram: collector failed: %w", err)
	}

	if parseErr != nil {
		return nil, fmt.Errorf("telegram: parse output: %w", parseErr)
	}

	if len(posts) > maxCount {
		posts = posts[:maxCount]
	}
	return posts, nil
}

// telegramMessage is the JSONL schema emitted by the Python collector.
type telegramMessage struct {
	Channel string `json:"channel"`
	MsgID   string `json:"msg_id"`
	Date    string `json:"date"`
	Text    string `json:"text"`
	URL     string `json:"url"`
}

// parseJSONL reads JSONL from r and converts each line to a Post.
func parseJSONL(r io.Reader) ([]Post, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, maxLineLength), maxLineLength)

	posts := []Post{}
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg telegramMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("line %d: invalid json: %w", lineNum, err)
		}

		id, err := strconv.ParseInt(msg.MsgID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid msg_id %q: %w", lineNum, msg.MsgID, err)
		}

		postedAt, err := time.Parse(time.RFC3339, msg.Date)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", lineNum, msg.Date, err)
		}

		posts = append(posts, Post{
			ID:       id,
			Text:     msg.Text,
			Author:   msg.Channel,
			URL:      msg.URL,
			PostedAt: postedAt,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}

	return posts, nil
}
