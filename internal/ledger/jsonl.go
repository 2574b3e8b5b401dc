package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONL appends one JSON document per round to a file
type JSONL struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// OpenJSONL opens (or creates) path for appending
func OpenJSONL(path string) (*JSONL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &JSONL{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (j *JSONL) Record(_ context.Context, round Round) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.enc.Encode(round); err != nil {
		return fmt.Errorf("encode round: %w", err)
	}
	return j.buf.Flush()
}

func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.buf.Flush(); err != nil {
		_ = j.file.Close()
		return err
	}
	return j.file.Close()
}

// ReadJSONL loads every round from a ledger file
func ReadJSONL(path string) ([]Round, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rounds []Round
	dec := json.NewDecoder(f)
	for dec.More() {
		var r Round
		if err := dec.Decode(&r); err != nil {
			return rounds, fmt.Errorf("decode round %d: %w", len(rounds)+1, err)
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}
