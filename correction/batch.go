package correction

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed batches/*.yaml
var builtinBatches embed.FS

// DefaultBatchName встроенный пакет, который выполняется без --batch
const DefaultBatchName = "ogt-49-60"

// ErrEmptyBatch пакет без шагов
var ErrEmptyBatch = errors.New("batch has no steps")

// VerifyRange диапазон sort_order для итоговой проверки
type VerifyRange struct {
	From int `yaml:"sort_order_from"`
	To   int `yaml:"sort_order_to"`
}

// Step один шаг пакета: ровно одно из copy, rename, sql
type Step struct {
	Label  string      `yaml:"label"`
	Copy   *CopyItem   `yaml:"copy,omitempty"`
	Rename *RenameItem `yaml:"rename,omitempty"`
	SQL    string      `yaml:"sql,omitempty"`
}

// Batch именованный пакет корректировок
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Verify      VerifyRange `yaml:"verify"`
	Steps       []Step      `yaml:"steps"`
}

// Validate проверяет шаги пакета и диапазон проверки
func (b *Batch) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("batch name is required")
	}
	if len(b.Steps) == 0 {
		return ErrEmptyBatch
	}
	if b.Verify.From > b.Verify.To {
		return fmt.Errorf("verify range %d..%d is empty", b.Verify.From, b.Verify.To)
	}

	labels := make(map[string]int, len(b.Steps))
	for i, step := range b.Steps {
		label := strings.TrimSpace(step.Label)
		if label == "" {
			return fmt.Errorf("step %d: label is required", i+1)
		}
		if prev, ok := labels[label]; ok {
			return fmt.Errorf("step %d: label %q already used by step %d", i+1, label, prev)
		}
		labels[label] = i + 1

		actions := 0
		if step.Copy != nil {
			actions++
			if err := step.Copy.Validate(); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, label, err)
			}
		}
		if step.Rename != nil {
			actions++
			if err := step.Rename.Validate(); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, label, err)
			}
		}
		if strings.TrimSpace(step.SQL) != "" {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("step %d (%s): exactly one of copy, rename, sql is required, got %d", i+1, label, actions)
		}
	}

	return nil
}

// Statements строит операторы в порядке шагов
func (b *Batch) Statements() []Statement {
	statements := make([]Statement, 0, len(b.Steps))
	for _, step := range b.Steps {
		switch {
		case step.Copy != nil:
			statements = append(statements, step.Copy.Statement(step.Label))
		case step.Rename != nil:
			statements = append(statements, step.Rename.Statement(step.Label))
		default:
			statements = append(statements, Statement{Label: step.Label, Query: step.SQL})
		}
	}
	return statements
}

// ParseBatch читает пакет из YAML и проверяет его
func ParseBatch(r io.Reader) (*Batch, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	batch := &Batch{}
	if err := decoder.Decode(batch); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBatch
		}
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}

	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch %q: %w", batch.Name, err)
	}

	return batch, nil
}

// LoadBatch загружает пакет из файла; пустой путь - встроенный пакет по умолчанию
func LoadBatch(path string) (*Batch, error) {
	if path == "" {
		return BuiltinBatch(DefaultBatchName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	return ParseBatch(bytes.NewReader(data))
}

// BuiltinBatch возвращает встроенный пакет по имени
func BuiltinBatch(name string) (*Batch, error) {
	data, err := builtinBatches.ReadFile("batches/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown builtin batch %q: %w", name, err)
	}

	return ParseBatch(bytes.NewReader(data))
}
