package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/reach/internal/compiler"
)

// LoadMode controls how errors are handled during network loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading networks from a directory.
type LoadResult struct {
	Networks  []compiler.NetworkSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during network loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadNetworks loads and compiles every network defined under the
// top-level "network" struct of the CUE package in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadNetworks(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("networks directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing networks directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	networksVal := value.LookupPath(cue.ParsePath("network"))
	if networksVal.Exists() {
		iter, iterErr := networksVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating networks: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				spec, compileErr := compiler.CompileNetwork(iter.Value())
				if compileErr != nil {
					errs = append(errs, convertCompileError(compileErr, "network."+iter.Selector().Unquoted()))
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Networks = append(result.Networks, *spec)
			}
		}
	}

	if len(result.Networks) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoNetworks, Message: "no networks found (define network: <Name>: { routes: [...] })"})
	}

	return result, errs
}

// SelectNetwork picks one network from a load result: the one called name,
// or the only one when name is empty.
func SelectNetwork(result *LoadResult, name string) (*compiler.NetworkSpec, error) {
	if name != "" {
		for i := range result.Networks {
			if result.Networks[i].Name == name {
				return &result.Networks[i], nil
			}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("network %q not found", name)}
	}

	switch len(result.Networks) {
	case 0:
		return nil, &LoadError{Code: ErrCodeNoNetworks, Message: "no networks found"}
	case 1:
		return &result.Networks[0], nil
	default:
		names := make([]string, len(result.Networks))
		for i, n := range result.Networks {
			names[i] = n.Name
		}
		return nil, &LoadError{
			Code:    ErrCodeAmbiguous,
			Message: fmt.Sprintf("%d networks defined (%s); choose one with --network", len(names), strings.Join(names, ", ")),
		}
	}
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path or name not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoNetworks  = "E008" // No networks defined
	ErrCodeAmbiguous   = "E009" // Several networks and none selected

	// Network compile errors
	ErrCodeInvalidCeiling = "E120" // ceiling not an integer
	ErrCodeInvalidRoute   = "E121" // route field missing or mistyped
	ErrCodeInvalidStation = "E122" // station entry not a string
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "ceiling":
		return ErrCodeInvalidCeiling
	case strings.HasPrefix(field, "routes"):
		return ErrCodeInvalidRoute
	case strings.HasPrefix(field, "stations"):
		return ErrCodeInvalidStation
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
