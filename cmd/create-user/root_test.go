package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"verisight-backend/internal/shared/auth"
	"verisight-backend/internal/shared/telemetry"
	"verisight-backend/internal/users"
)

func TestCreateUserPrintsToken(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	signer, _ := auth.NewSigner("test-secret", "test", time.Hour)
	svc := users.NewService(users.NewMemoryRepo(), signer, nil)
	svc.HashCost = bcrypt.MinCost

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	if err := createUser(cmd, svc, createUserFlags{username: "ada", password: "pw"}); err != nil {
		t.Fatalf("createUser: %v", err)
	}
	var token string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "token:") {
			token = strings.TrimSpace(strings.TrimPrefix(line, "token:"))
		}
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("printed token must verify: %v (output %q)", err, out.String())
	}
	if active, _ := svc.SessionActive(context.Background(), claims.SessionID); !active {
		t.Fatalf("printed token must be bound to an open session")
	}

	if err := createUser(cmd, svc, createUserFlags{username: "ada", password: "pw"}); err == nil {
		t.Fatalf("expected duplicate username error")
	}
}

func TestRootCommandRequiresCredentials(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--username", "ada"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--password") {
		t.Fatalf("expected missing password error, got %v", err)
	}
}
