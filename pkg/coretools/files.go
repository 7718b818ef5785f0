package coretools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/toolhub/pkg/tool"
)

const defaultMaxBytes = 200000

type workspace struct {
	root string
}

// resolve maps a user supplied path to an absolute path inside the root
func (w workspace) resolve(pathValue string) (string, string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", "", fmt.Errorf("path is required")
	}
	if strings.Contains(pathValue, "://") {
		return "", "", fmt.Errorf("path must be a local file")
	}

	candidate := pathValue
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(w.root, candidate)
	if err != nil {
		return "", "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("path %q is outside workspace root", pathValue)
	}
	return candidate, filepath.ToSlash(rel), nil
}

type readFileArgs struct {
	Path     string `json:"path" jsonschema_description:"File path relative to the workspace"`
	MaxBytes int    `json:"max_bytes,omitempty" jsonschema_description:"Maximum bytes to read (default 200000)"`
}

func readFileTool(ws workspace) tool.Tool {
	return tool.New("read_file", "Read a file from the workspace.", tool.SchemaFor(&readFileArgs{}),
		func(ctx context.Context, args map[string]interface{}, execCtx tool.ExecutionContext) (tool.ToolResult, error) {
			var in readFileArgs
			if err := decodeArgs(args, &in); err != nil {
				return tool.ToolResult{}, err
			}
			target, rel, err := ws.resolve(in.Path)
			if err != nil {
				return tool.Failure("%s", err.Error()), nil
			}

			limit := int64(defaultMaxBytes)
			if in.MaxBytes > 0 {
				limit = int64(in.MaxBytes)
			}

			data, truncated, err := readFileWithLimit(target, limit)
			if errors.Is(err, fs.ErrNotExist) {
				return tool.Failure("file not found: %s", rel), nil
			}
			if err != nil {
				return tool.ToolResult{}, err
			}

			return tool.Success(map[string]interface{}{
				"path":      rel,
				"content":   string(data),
				"truncated": truncated,
				"bytes":     len(data),
			}), nil
		})
}

type writeFileArgs struct {
	Path    string `json:"path" jsonschema_description:"File path relative to the workspace"`
	Content string `json:"content" jsonschema_description:"File content"`
	Append  bool   `json:"append,omitempty" jsonschema_description:"Append instead of overwrite"`
}

func writeFileTool(ws workspace) tool.Tool {
	return tool.New("write_file", "Write content to a file in the workspace.", tool.SchemaFor(&writeFileArgs{}),
		func(ctx context.Context, args map[string]interface{}, execCtx tool.ExecutionContext) (tool.ToolResult, error) {
			var in writeFileArgs
			if err := decodeArgs(args, &in); err != nil {
				return tool.ToolResult{}, err
			}
			target, rel, err := ws.resolve(in.Path)
			if err != nil {
				return tool.Failure("%s", err.Error()), nil
			}

			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return tool.ToolResult{}, err
			}

			flag := os.O_CREATE | os.O_WRONLY
			if in.Append {
				flag |= os.O_APPEND
			} else {
				flag |= os.O_TRUNC
			}
			f, err := os.OpenFile(target, flag, 0644)
			if err != nil {
				return tool.ToolResult{}, err
			}
			if _, err := f.WriteString(in.Content); err != nil {
				f.Close()
				return tool.ToolResult{}, err
			}
			if err := f.Close(); err != nil {
				return tool.ToolResult{}, err
			}

			return tool.Success(map[string]interface{}{
				"path":   rel,
				"bytes":  len(in.Content),
				"append": in.Append,
			}, tool.ResourceRef{Type: ResourceTypeFile, ID: rel}), nil
		},
		tool.NoCache())
}

type editFileArgs struct {
	Path       string `json:"path" jsonschema_description:"File path relative to the workspace"`
	Search     string `json:"search" jsonschema_description:"Text to search for"`
	Replace    string `json:"replace" jsonschema_description:"Replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema_description:"Replace all occurrences"`
}

func editFileTool(ws workspace) tool.Tool {
	return tool.New("edit_file", "Replace text in a workspace file.", tool.SchemaFor(&editFileArgs{}),
		func(ctx context.Context, args map[string]interface{}, execCtx tool.ExecutionContext) (tool.ToolResult, error) {
			var in editFileArgs
			if err := decodeArgs(args, &in); err != nil {
				return tool.ToolResult{}, err
			}
			if in.Search == "" {
				return tool.Failure("search must not be empty"), nil
			}
			target, rel, err := ws.resolve(in.Path)
			if err != nil {
				return tool.Failure("%s", err.Error()), nil
			}

			data, err := os.ReadFile(target)
			if errors.Is(err, fs.ErrNotExist) {
				return tool.Failure("file not found: %s", rel), nil
			}
			if err != nil {
				return tool.ToolResult{}, err
			}
			content := string(data)

			occurrences := strings.Count(content, in.Search)
			if occurrences == 0 {
				return tool.Failure("search text not found in %s", rel), nil
			}

			var updated string
			if in.ReplaceAll {
				updated = strings.ReplaceAll(content, in.Search, in.Replace)
			} else {
				updated = strings.Replace(content, in.Search, in.Replace, 1)
				occurrences = 1
			}

			info, err := os.Stat(target)
			if err != nil {
				return tool.ToolResult{}, err
			}
			if err := os.WriteFile(target, []byte(updated), info.Mode().Perm()); err != nil {
				return tool.ToolResult{}, err
			}

			return tool.Success(map[string]interface{}{
				"path":         rel,
				"replacements": occurrences,
			}), nil
		},
		tool.NoCache())
}

func readFileWithLimit(path string, limit int64) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
