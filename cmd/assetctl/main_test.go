package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

func TestReadPayload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "customer.json")
	if err := os.WriteFile(file, []byte(`{"name":"Acme"}`), 0o600); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	cases := []struct {
		name    string
		data    string
		stdin   string
		want    map[string]any
		wantErr bool
	}{
		{name: "literal", data: `{"name":"Acme","active":true}`, want: map[string]any{"name": "Acme", "active": true}},
		{name: "stdin", data: "-", stdin: `{"name":"Piped"}`, want: map[string]any{"name": "Piped"}},
		{name: "file", data: "@" + file, want: map[string]any{"name": "Acme"}},
		{name: "missing file", data: "@" + filepath.Join(dir, "nope.json"), wantErr: true},
		{name: "array", data: `[1,2]`, wantErr: true},
		{name: "not json", data: "name=Acme", wantErr: true},
		{name: "empty stdin", data: "-", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := readPayload(tc.data, strings.NewReader(tc.stdin))
			if tc.wantErr {
				if !apperrors.IsKind(err, apperrors.KindBadInput) {
					t.Fatalf("expected bad input, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("read payload: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("payload = %v, want %v", got, tc.want)
			}
		})
	}
}

func parseArgs(t *testing.T, argv ...string) (*cli, *kong.Context, error) {
	t.Helper()
	var args cli
	parser, err := kong.New(&args, cliOptions()...)
	if err != nil {
		t.Fatalf("build parser: %v", err)
	}
	kctx, err := parser.Parse(argv)
	return &args, kctx, err
}

func TestCommandLineParsing(t *testing.T) {
	args, kctx, err := parseArgs(t, "report", "inventory", "--param", "status=ACTIVE", "--param", "customer=c1", "-o", "inventory.csv")
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if kctx.Command() != "report <name>" {
		t.Fatalf("unexpected command %q", kctx.Command())
	}
	if want := map[string]string{"status": "ACTIVE", "customer": "c1"}; !reflect.DeepEqual(args.Report.Param, want) {
		t.Fatalf("params = %v, want %v", args.Report.Param, want)
	}
	if args.Report.Format != "csv" || args.Report.Out != "inventory.csv" {
		t.Fatalf("unexpected report flags %+v", args.Report)
	}

	args, _, err = parseArgs(t, "--base-url", "http://api.test/v1", "bulk-delete", "sites", "a", "b c")
	if err != nil {
		t.Fatalf("parse bulk-delete: %v", err)
	}
	if args.BaseURL != "http://api.test/v1" || !reflect.DeepEqual(args.BulkDelete.IDs, []string{"a", "b c"}) {
		t.Fatalf("unexpected bulk-delete args %+v", args)
	}

	args, _, err = parseArgs(t, "list", "customers")
	if err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if args.List.Page != 1 || args.List.PerPage != 10 {
		t.Fatalf("unexpected list defaults %+v", args.List)
	}

	if _, _, err := parseArgs(t, "create", "customers"); err == nil {
		t.Fatalf("expected missing --data to fail")
	}
}

func TestExitCodeAndDescribe(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     int
		describe string
	}{
		{"bad input", apperrors.NewBadInput("ids required", nil), 2, "ids required"},
		{"session expired", apperrors.NewSessionExpired(http.StatusUnauthorized, "Unauthorized"), 3, "Session expired. Please login again."},
		{"transport", apperrors.NewTransportError(errors.New("dial tcp: refused")), 4, ""},
		{"domain", apperrors.NewDomainError("CONFLICT", "Customer already exists", http.StatusConflict, nil), 1, "Customer already exists (HTTP 409)"},
		{"plain", errors.New("boom"), 1, "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.code {
				t.Fatalf("exit code = %d, want %d", got, tc.code)
			}
			if tc.describe != "" && describe(tc.err) != tc.describe {
				t.Fatalf("describe = %q, want %q", describe(tc.err), tc.describe)
			}
		})
	}
}
