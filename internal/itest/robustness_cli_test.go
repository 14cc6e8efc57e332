//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, tmp string) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_GenerateArgs(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "no args",
			args: staticArgs("generate"),
			wantContains: []string{
				"accepts 1 arg(s), received 0",
			},
		},
		{
			name: "too many args",
			args: staticArgs("generate", "a.mp4", "extra"),
			wantContains: []string{
				"accepts 1 arg(s), received 2",
			},
		},
		{
			name: "unknown flag",
			args: staticArgs("generate", "a.mp4", "--wat"),
			wantContains: []string{
				"unknown flag: --wat",
			},
		},
		{
			name: "duration non int",
			args: staticArgs("generate", "a.mp4", "--duration", "nope"),
			wantContains: []string{
				`invalid argument "nope" for`,
			},
		},
		{
			name: "unknown tone",
			args: configArgs("generate", "a.mp4", "--tone", "sarcastic"),
			wantContains: []string{
				`unknown tone "sarcastic"`,
			},
		},
		{
			name: "duration below minimum",
			args: configArgs("generate", "a.mp4", "--duration", "5"),
			wantContains: []string{
				"teaser duration",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidInput(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "missing api key",
			args: configArgs("generate", "a.mp4"),
			env: map[string]string{
				"OPENAI_API_KEY": "",
			},
			wantContains: []string{
				"OPENAI_API_KEY is required",
			},
		},
		{
			name: "missing input file",
			args: func(t *testing.T, tmp string) []string {
				t.Helper()
				return configArgs("generate", filepath.Join(tmp, "does-not-exist.mp4"))(t, tmp)
			},
			env: map[string]string{
				"OPENAI_API_KEY": "dummy",
			},
			wantContains: []string{
				"stat input:",
			},
		},
		{
			name: "non media extension",
			args: func(t *testing.T, tmp string) []string {
				t.Helper()
				notMedia := filepath.Join(tmp, "notes.txt")
				if err := os.WriteFile(notMedia, []byte("not a video"), 0o644); err != nil {
					t.Fatalf("write fixture: %v", err)
				}
				return configArgs("generate", notMedia)(t, tmp)
			},
			env: map[string]string{
				"OPENAI_API_KEY": "dummy",
			},
			wantContains: []string{
				"unsupported video format",
			},
			wantNotContains: []string{
				"dummy",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, t.TempDir()), tc.env)
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/teasergen"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR": "1",
			"TERM":     "dumb",
		},
		env,
	)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func staticArgs(args ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}

// configArgs appends a --config pointing at a throwaway directory layout so
// the CLI never creates data dirs inside the repo.
func configArgs(args ...string) func(t *testing.T, tmp string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, tmp string) []string {
		t.Helper()
		cfgPath := writeTestConfig(t, tmp)
		return append(append([]string(nil), clone...), "--config", cfgPath)
	}
}
