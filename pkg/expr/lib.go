package expr

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/jyasuu/jcheck/pkg/document"
	"github.com/jyasuu/jcheck/pkg/query"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),

		// Path helpers mirror their filepath counterparts.
		// Example: pathExt(file) in [".yaml", ".yml"].
		stringFunc("pathBase", filepath.Base),
		stringFunc("pathDir", filepath.Dir),
		stringFunc("pathExt", filepath.Ext),

		// `jsonPath` reads a document and extracts the first value a path
		// query selects, or null if the file, query, or value is missing.
		// Example: jsonPath(file, "$.apiVersion") == "v2".
		cel.Function("jsonPath",
			cel.Overload("json_path", []*cel.Type{cel.StringType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(jsonPathFunc),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func stringFunc(name string, fn func(string) string) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_string", []*cel.Type{cel.StringType}, cel.StringType,
			cel.UnaryBinding(func(v ref.Val) ref.Val {
				s, ok := v.(types.String).Value().(string)
				if !ok {
					return types.NewErr("%s: invalid string value", name)
				}

				return types.String(fn(s))
			}),
		),
	)
}

//nolint:ireturn // Following CEL's function signature.
func jsonPathFunc(filePath, pathExpr ref.Val) ref.Val {
	filePathStr, ok := filePath.(types.String).Value().(string)
	if !ok {
		return types.NewErr("jsonPath: invalid file path")
	}

	pathStr, ok := pathExpr.(types.String).Value().(string)
	if !ok {
		return types.NewErr("jsonPath: invalid path query")
	}

	logger := slog.With(
		slog.String("file", filePathStr),
		slog.String("path", pathStr),
	)

	//nolint:gosec // G304: Potential file inclusion via variable.
	content, err := os.ReadFile(filePathStr)
	if err != nil {
		// Return null if the file can't be read, don't error.
		logger.Debug("failed to read document, returning null",
			slog.Any("error", err),
		)

		return types.NullValue
	}

	doc, err := document.Parse(content)
	if err != nil {
		logger.Debug("failed to parse document, returning null",
			slog.Any("error", err),
		)

		return types.NullValue
	}

	x, err := query.NewJSONPath().Parse(pathStr)
	if err != nil {
		logger.Debug("invalid path query, returning null",
			slog.Any("error", err),
		)

		return types.NullValue
	}

	matches := x.Select(doc)
	if len(matches) == 0 {
		return types.NullValue
	}

	return ConvertToCELValue(matches[0].Value)
}

// ConvertToCELValue converts a normalized document value to a CEL value.
// Unsupported types convert to null instead of erroring.
//
//nolint:ireturn // Following CEL's function signature.
func ConvertToCELValue(value any) ref.Val {
	switch v := value.(type) {
	case nil:
		return types.NullValue

	case bool:
		return types.Bool(v)

	case int:
		return types.Int(int64(v))

	case int64:
		return types.Int(v)

	case float64:
		return types.Double(v)

	case string:
		return types.String(v)

	case []any:
		celValues := make([]ref.Val, len(v))
		for i, item := range v {
			celValues[i] = ConvertToCELValue(item)
		}

		return types.NewDynamicList(types.DefaultTypeAdapter, celValues)

	case map[string]any:
		celMap := make(map[ref.Val]ref.Val)
		for key, val := range v {
			celMap[types.String(key)] = ConvertToCELValue(val)
		}

		return types.NewDynamicMap(types.DefaultTypeAdapter, celMap)

	default:
		return types.NullValue
	}
}
