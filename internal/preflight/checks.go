package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"jobdraft/internal/extract"
	"jobdraft/internal/llm"
	"jobdraft/internal/providers"
)

const liveCheckTimeout = 30 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckVocabulary verifies that a vocabulary override parses.
func CheckVocabulary(path string) Result {
	const name = "Vocabulary"
	if _, err := extract.LoadVocabularyFile(path); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckCredential turns a registry diagnostic into a result.
func CheckCredential(diag providers.Diagnostic) Result {
	name := "Provider " + diag.Name
	if !diag.Valid {
		return Result{Name: name, Detail: fmt.Sprintf("excluded: %s", diag.Reason)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s (%s)", diag.Kind, diag.Model, diag.Credential)}
}

// CheckProvider sends a one-line completion to p with a single attempt.
func CheckProvider(ctx context.Context, client Completer, p providers.ProviderConfig) Result {
	name := "Provider " + p.Name + " (live)"
	checkCtx, cancel := context.WithTimeout(ctx, liveCheckTimeout)
	defer cancel()

	started := time.Now()
	result, err := client.Complete(checkCtx, p, llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Reply with the single word OK."}},
		MaxTokens: 5,
	})
	if err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	if result == nil || strings.TrimSpace(result.Content) == "" {
		return Result{Name: name, Detail: "empty response"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable in %s", time.Since(started).Round(time.Millisecond))}
}

// summarizeLLMError produces a human-readable summary for provider check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (provider unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (provider unreachable)"
	}
	return err.Error()
}
