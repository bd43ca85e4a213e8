package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/cognicore/triyaj/pkg/triyaj"
	"github.com/cognicore/triyaj/pkg/triyaj/config"
	"github.com/cognicore/triyaj/pkg/triyaj/envelope"
)

// TestBuildEngineMemoryStore tests that buildEngine runs a turn against the
// shipped catalog with the in-memory store
func TestBuildEngineMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg = config.Config{CatalogDir: "../../../data"}

	eng, err := buildEngine(ctx, "", false)
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	defer eng.Close()

	env := eng.HandleTurn(ctx, triyaj.TurnRequest{
		Locale:      "tr-TR",
		UserMessage: "Başım ağrıyor ve bulantı var",
	})
	if env.Type != envelope.TypeQuestion {
		t.Fatalf("expected QUESTION envelope, got %s", env.Type)
	}
}

// TestBuildEngineMissingCatalog tests that buildEngine fails with a missing
// catalog directory
func TestBuildEngineMissingCatalog(t *testing.T) {
	cfg = config.Config{CatalogDir: filepath.Join(t.TempDir(), "nonexistent")}

	if _, err := buildEngine(context.Background(), "", false); err == nil {
		t.Error("buildEngine should fail with a missing catalog directory")
	}
}

// TestBuildEngineMissingFacilities tests that buildEngine fails when the
// configured facilities file does not exist
func TestBuildEngineMissingFacilities(t *testing.T) {
	cfg = config.Config{
		CatalogDir:     "../../../data",
		FacilitiesPath: filepath.Join(t.TempDir(), "nonexistent.jsonl"),
	}

	if _, err := buildEngine(context.Background(), "", false); err == nil {
		t.Error("buildEngine should fail with a missing facilities file")
	}
}

// TestBuildEngineWithFacilities tests that buildEngine loads a facilities
// directory when one is configured
func TestBuildEngineWithFacilities(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "facilities.jsonl")
	rows := `{"specialty_id":"neurology","city":"Istanbul","name":"Test Hastanesi","type":"hospital","address":"Test Cd. 1","lat":41.0,"lon":29.0}` + "\n"
	if err := os.WriteFile(path, []byte(rows), 0o644); err != nil {
		t.Fatalf("write facilities: %v", err)
	}
	cfg = config.Config{CatalogDir: "../../../data", FacilitiesPath: path}

	eng, err := buildEngine(ctx, "", false)
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	defer eng.Close()
}

// TestBuildEngineSQLitePersistence tests that a session started by one engine
// instance can be continued by another over the same database file
func TestBuildEngineSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	cfg = config.Config{CatalogDir: "../../../data"}
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	eng, err := buildEngine(ctx, dbPath, false)
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	env := eng.HandleTurn(ctx, triyaj.TurnRequest{
		Locale:      "tr-TR",
		UserMessage: "Başım ağrıyor ve bulantı var",
	})
	if env.Type != envelope.TypeQuestion {
		t.Fatalf("expected QUESTION envelope, got %s", env.Type)
	}
	sessionID := env.SessionID
	if err := eng.Close(); err != nil {
		t.Fatalf("close engine: %v", err)
	}

	eng2, err := buildEngine(ctx, dbPath, false)
	if err != nil {
		t.Fatalf("buildEngine (reopen) failed: %v", err)
	}
	defer eng2.Close()

	env2 := eng2.HandleTurn(ctx, triyaj.TurnRequest{
		SessionID: sessionID,
		Answer:    &triyaj.Answer{Value: "Hayır"},
	})
	if env2.Type != envelope.TypeQuestion {
		t.Fatalf("continued session should get the next question, got %s", env2.Type)
	}
	if env2.TurnIndex != 2 {
		t.Errorf("TurnIndex = %d, want 2", env2.TurnIndex)
	}
}

// TestTurnRequestFromStdin tests that turnRequest decodes a JSON request
func TestTurnRequestFromStdin(t *testing.T) {
	turnMessage, turnAnswer, turnSession, turnLocale = "", "", "", "tr-TR"

	req, err := turnRequest(strings.NewReader(`{"user_message":"Başım ağrıyor","locale":"tr-TR"}`))
	if err != nil {
		t.Fatalf("turnRequest failed: %v", err)
	}
	if req.UserMessage != "Başım ağrıyor" {
		t.Errorf("UserMessage = %q", req.UserMessage)
	}
	if req.Locale != "tr-TR" {
		t.Errorf("Locale = %q", req.Locale)
	}
}

// TestTurnRequestFromFlags tests that --message skips stdin entirely
func TestTurnRequestFromFlags(t *testing.T) {
	turnMessage, turnAnswer, turnSession, turnLocale = "Karnım ağrıyor", "", "abc", "tr-TR"
	defer func() { turnMessage, turnSession = "", "" }()

	req, err := turnRequest(strings.NewReader("not json, must not be read"))
	if err != nil {
		t.Fatalf("turnRequest failed: %v", err)
	}
	if req.UserMessage != "Karnım ağrıyor" || req.SessionID != "abc" {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.Answer != nil {
		t.Errorf("Answer should be nil without --answer")
	}
}

// TestTurnRequestAnswerFlag tests that --answer builds an answer request
func TestTurnRequestAnswerFlag(t *testing.T) {
	turnMessage, turnAnswer, turnSession, turnLocale = "", "Evet", "abc", "tr-TR"
	defer func() { turnAnswer, turnSession = "", "" }()

	req, err := turnRequest(strings.NewReader(""))
	if err != nil {
		t.Fatalf("turnRequest failed: %v", err)
	}
	if req.Answer == nil || req.Answer.Value != "Evet" {
		t.Errorf("Answer = %+v, want Evet", req.Answer)
	}
}

// TestTurnRequestBadJSON tests that malformed stdin input is rejected
func TestTurnRequestBadJSON(t *testing.T) {
	turnMessage, turnAnswer, turnSession = "", "", ""

	if _, err := turnRequest(strings.NewReader("{not json")); err == nil {
		t.Error("turnRequest should fail on malformed JSON")
	}
}

// TestChatProfileEmpty tests that no profile is sent when no flag was set
func TestChatProfileEmpty(t *testing.T) {
	chatSex = ""
	chatChronic = nil
	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&chatAge, "age", 0, "")
	cmd.Flags().BoolVar(&chatPregnant, "pregnant", false, "")

	if p := chatProfile(cmd); p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
}

// TestChatProfileFromFlags tests that only the flags that were set reach the
// profile
func TestChatProfileFromFlags(t *testing.T) {
	chatSex = ""
	chatChronic = nil
	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&chatAge, "age", 0, "")
	cmd.Flags().BoolVar(&chatPregnant, "pregnant", false, "")
	if err := cmd.Flags().Set("age", "34"); err != nil {
		t.Fatalf("set age: %v", err)
	}
	chatSex = "K"
	chatChronic = []string{"diyabet"}

	p := chatProfile(cmd)
	if p == nil {
		t.Fatal("expected a profile")
	}
	if p.Age == nil || *p.Age != 34 {
		t.Errorf("Age = %v, want 34", p.Age)
	}
	if p.Sex != "K" {
		t.Errorf("Sex = %q, want K", p.Sex)
	}
	if p.Pregnant != nil {
		t.Errorf("Pregnant should stay nil when the flag was not set")
	}
	if len(p.Chronic) != 1 || p.Chronic[0] != "diyabet" {
		t.Errorf("Chronic = %v", p.Chronic)
	}
}
