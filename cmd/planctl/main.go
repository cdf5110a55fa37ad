package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/study-plan-api/internal/dto"
	"github.com/noah-isme/study-plan-api/internal/planner"
	"github.com/noah-isme/study-plan-api/internal/repository"
	"github.com/noah-isme/study-plan-api/internal/service"
	"github.com/noah-isme/study-plan-api/pkg/config"
	"github.com/noah-isme/study-plan-api/pkg/logger"
)

const usage = `planctl plans study schedules offline.

Usage:
  planctl generate -exam 2026-11-30 -subjects "Physics,Math" [-hours 3] [-difficulty beginner]
                   [-style visual] [-prefs morning,evening] [-seed 42] [-format json] [-out file]
  planctl token -learner <id> [-name "Display Name"]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	switch os.Args[1] {
	case "generate":
		err = runGenerate(cfg, logr, os.Args[2:])
	case "token":
		err = runToken(cfg, logr, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func runGenerate(cfg *config.Config, logr *zap.Logger, args []string) error {
	var (
		exam       string
		subjects   string
		hours      int
		difficulty string
		style      string
		prefs      string
		seed       int64
		format     string
		out        string
	)

	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	fs.StringVar(&exam, "exam", "", "Exam date (YYYY-MM-DD or RFC 3339)")
	fs.StringVar(&subjects, "subjects", "", "Comma separated subjects")
	fs.IntVar(&hours, "hours", 2, "Study hours per day (1-24)")
	fs.StringVar(&difficulty, "difficulty", "intermediate", "beginner, intermediate or advanced")
	fs.StringVar(&style, "style", "", "Learning style: visual, auditory, kinesthetic or reading")
	fs.StringVar(&prefs, "prefs", "", "Comma separated times of day: morning, afternoon, evening, night")
	fs.Int64Var(&seed, "seed", 0, "Random seed; 0 uses the clock")
	fs.StringVar(&format, "format", service.FormatJSON, "Output format: json, csv, ics, pdf or xlsx")
	fs.StringVar(&out, "out", "", "Write to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog, err := planner.LoadCatalog(cfg.Planner.CatalogPath)
	if err != nil {
		return err
	}

	req := dto.GenerateStudyPlanRequest{
		ExamDate:         exam,
		Subjects:         splitList(subjects),
		StudyHoursPerDay: hours,
		Difficulty:       difficulty,
		LearningStyle:    style,
		TimePreferences:  splitList(prefs),
	}
	if seed != 0 {
		req.Seed = &seed
	}

	plans := service.NewStudyPlanService(
		repository.NewMemoryStudyPlanRepository(),
		planner.NewAssembler(catalog, nil),
		nil,
		nil,
		nil,
		nil,
		logr,
		service.StudyPlanConfig{},
	)
	resp, err := plans.Generate(context.Background(), "planctl", req)
	if err != nil {
		return err
	}
	if resp.Warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", resp.Warning)
	}

	renderer := service.NewExportService(nil, nil, nil, service.ExportRenderers{}, nil, nil, nil, logr, service.ExportConfig{})
	payload, err := renderer.Render(resp.Plan, resp.Progress, strings.ToLower(format))
	if err != nil {
		return err
	}

	if out == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logr.Info("plan written", zap.String("path", out), zap.Int("sessions", len(resp.Plan.Sessions)))
	return nil
}

func runToken(cfg *config.Config, logr *zap.Logger, args []string) error {
	var (
		learner string
		name    string
		expiry  time.Duration
	)

	fs := flag.NewFlagSet("token", flag.ExitOnError)
	fs.StringVar(&learner, "learner", "", "Learner id to embed in the token")
	fs.StringVar(&name, "name", "", "Optional display name")
	fs.DurationVar(&expiry, "expiry", cfg.JWT.Expiration, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tokens := service.NewTokenService(nil, logr, service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: expiry,
	})
	resp, err := tokens.Issue(dto.IssueTokenRequest{LearnerID: learner, DisplayName: name})
	if err != nil {
		return err
	}
	fmt.Println(resp.AccessToken)
	return nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
