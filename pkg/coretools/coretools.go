package coretools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/harun/toolhub/pkg/tool"
)

// ResourceTypeFile is the resource type reported for files written by tools
const ResourceTypeFile = "file"

// Options configures the built-in tool set.
type Options struct {
	// WorkspaceRoot confines the file tools. File tools are left out when empty.
	WorkspaceRoot string
	// Now overrides the clock used by the now tool.
	Now func() time.Time
}

// Tools returns the built-in tool set
func Tools(opts Options) []tool.Tool {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tools := []tool.Tool{
		echoTool(),
		nowTool(opts),
	}
	if strings.TrimSpace(opts.WorkspaceRoot) != "" {
		ws := workspace{root: filepath.Clean(opts.WorkspaceRoot)}
		tools = append(tools,
			readFileTool(ws),
			writeFileTool(ws),
			editFileTool(ws),
		)
	}
	return tools
}

// Provider adapts Tools to the registry's lazy built-in hook
func Provider(opts Options) func() []tool.Tool {
	return func() []tool.Tool {
		return Tools(opts)
	}
}

type echoArgs struct {
	Msg string `json:"msg" jsonschema_description:"Message to echo back"`
}

func echoTool() tool.Tool {
	return tool.New("echo", "Echo a message back to the caller.", tool.SchemaFor(&echoArgs{}),
		func(ctx context.Context, args map[string]interface{}, execCtx tool.ExecutionContext) (tool.ToolResult, error) {
			var in echoArgs
			if err := decodeArgs(args, &in); err != nil {
				return tool.ToolResult{}, err
			}
			return tool.Success(map[string]interface{}{"msg": in.Msg}), nil
		})
}

type nowArgs struct {
	Timezone string `json:"timezone,omitempty" jsonschema_description:"IANA time zone name, UTC when empty"`
	Format   string `json:"format,omitempty" jsonschema:"enum=rfc3339,enum=unix,enum=date" jsonschema_description:"Output format"`
}

// nowTool reports the current time. Results are cached for one second.
func nowTool(opts Options) tool.Tool {
	return tool.New("now", "Return the current time.", tool.SchemaFor(&nowArgs{}),
		func(ctx context.Context, args map[string]interface{}, execCtx tool.ExecutionContext) (tool.ToolResult, error) {
			var in nowArgs
			if err := decodeArgs(args, &in); err != nil {
				return tool.ToolResult{}, err
			}

			loc := time.UTC
			if in.Timezone != "" {
				l, err := time.LoadLocation(in.Timezone)
				if err != nil {
					return tool.Failure("unknown timezone: %s", in.Timezone), nil
				}
				loc = l
			}

			now := opts.Now().In(loc)
			var value interface{}
			switch in.Format {
			case "unix":
				value = now.Unix()
			case "date":
				value = now.Format("2006-01-02")
			default:
				value = now.Format(time.RFC3339)
			}

			return tool.Success(map[string]interface{}{
				"time":     value,
				"timezone": loc.String(),
			}), nil
		},
		tool.WithCacheTTL(time.Second))
}

// decodeArgs copies validated arguments into a typed struct
func decodeArgs(args map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	return nil
}
