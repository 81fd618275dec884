package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/campus-careers/placement-hub/internal/application/command"
	"github.com/campus-careers/placement-hub/internal/application/query"
	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBCOMMANDS
// ══════════════════════════════════════════════════════════════════════════════

type subcommand struct {
	summary string

	// manageSchema marks commands that run migrations themselves.
	manageSchema bool
	// standalone commands read configuration only and open no stores.
	standalone bool

	run func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error)
}

var subcommandOrder = []string{
	"migrate", "rollback", "status",
	"import-users", "login", "register-rep", "review-rep",
	"post", "review-internship", "search",
	"eligible", "apply", "applications", "review-application", "accept",
	"request-withdrawal", "resolve-withdrawal", "withdrawals", "report",
	"features",
}

var subcommands = map[string]subcommand{
	"migrate":      {summary: "apply pending database migrations", manageSchema: true, run: runMigrate},
	"rollback":     {summary: "roll back the latest migration", manageSchema: true, run: runRollback},
	"status":       {summary: "list migrations and whether they are applied", manageSchema: true, run: runStatus},
	"import-users":       {summary: "create students and staff from CSV rosters", run: runImportUsers},
	"login":              {summary: "check a user's credentials", run: runLogin},
	"register-rep":       {summary: "register a company representative", run: runRegisterRep},
	"review-rep":         {summary: "approve or reject a representative (staff)", run: runReviewRep},
	"post":               {summary: "post an internship as a representative", run: runPost},
	"review-internship":  {summary: "approve or reject a posting (staff)", run: runReviewInternship},
	"search":             {summary: "search internships in the actor's scope", run: runSearch},
	"eligible":           {summary: "list internships a student may apply to", run: runEligible},
	"apply":              {summary: "apply to an internship as a student", run: runApply},
	"applications":       {summary: "list a student's applications", run: runApplications},
	"review-application": {summary: "mark an application successful or unsuccessful", run: runReviewApplication},
	"accept":             {summary: "accept a successful application", run: runAccept},
	"request-withdrawal": {summary: "ask staff to withdraw an application", run: runRequestWithdrawal},
	"resolve-withdrawal": {summary: "approve or reject a withdrawal request (staff)", run: runResolveWithdrawal},
	"withdrawals":        {summary: "list open withdrawal requests (staff)", run: runWithdrawals},
	"report":             {summary: "popularity, companies or slots report (staff)", run: runReport},
	"features":           {summary: "list feature toggles and their rollout", standalone: true, run: runFeatures},
}

var errNoDatabase = errors.New("this command needs DATABASE_URL")

// ─────────────────────────────────────────────────────────────────────────────
// Schema
// ─────────────────────────────────────────────────────────────────────────────

func runMigrate(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.db == nil {
		return nil, errNoDatabase
	}
	applied, err := postgres.NewMigrator(a.db).Migrate(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"applied": applied}, nil
}

func runRollback(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.db == nil {
		return nil, errNoDatabase
	}
	version, err := postgres.NewMigrator(a.db).Rollback(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"rolled_back": version}, nil
}

type migrationStatus struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func runStatus(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.db == nil {
		return nil, errNoDatabase
	}
	migrations, err := postgres.NewMigrator(a.db).Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]migrationStatus, 0, len(migrations))
	for _, m := range migrations {
		s := migrationStatus{Version: m.Version, Name: m.Name, Applied: m.IsApplied}
		if m.IsApplied {
			at := m.AppliedAt
			s.AppliedAt = &at
		}
		out = append(out, s)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Accounts
// ─────────────────────────────────────────────────────────────────────────────

func runImportUsers(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	studentsPath := fs.String("students", "", "student roster CSV (id,name,major,year,email)")
	staffPath := fs.String("staff", "", "staff roster CSV (id,name,role,department,email)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *studentsPath == "" && *staffPath == "" {
		return nil, fmt.Errorf("%w: import-users needs -students or -staff", errUsage)
	}

	var cmd command.ImportUsersCommand
	if *studentsPath != "" {
		f, err := os.Open(*studentsPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if cmd.Students, err = readStudents(f); err != nil {
			return nil, fmt.Errorf("%s: %w", *studentsPath, err)
		}
	}
	if *staffPath != "" {
		f, err := os.Open(*staffPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if cmd.Staff, err = readStaff(f); err != nil {
			return nil, fmt.Errorf("%s: %w", *staffPath, err)
		}
	}

	return command.NewImportUsersHandler(a.commands).Handle(ctx, cmd)
}

func runLogin(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	id := fs.String("id", "", "student id, staff id or representative email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewLoginHandler(a.commands).Handle(ctx, command.LoginCommand{
		LoginID:  *id,
		Password: *password,
	})
	if err != nil {
		return nil, err
	}
	return query.NewUserDTO(res.User), nil
}

func runRegisterRep(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email, used as the login id")
	companyName := fs.String("company", "", "company name")
	department := fs.String("department", "", "department")
	position := fs.String("position", "", "position")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewRegisterRepresentativeHandler(a.commands).Handle(ctx, command.RegisterRepresentativeCommand{
		Name:          *name,
		Email:         *email,
		CompanyName:   *companyName,
		Department:    *department,
		Position:      *position,
		CorrelationID: a.requestID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"representative":  query.NewUserDTO(res.Representative),
		"company_created": res.CompanyCreated,
	}, nil
}

func runReviewRep(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	staff := fs.String("staff", "", "staff id")
	rep := fs.String("rep", "", "representative email")
	decision := fs.String("decision", "", "approve or reject")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewReviewRepresentativeHandler(a.commands).Handle(ctx, command.ReviewRepresentativeCommand{
		StaffID:          *staff,
		RepresentativeID: *rep,
		Decision:         command.Decision(*decision),
		CorrelationID:    a.requestID,
	})
	if err != nil {
		return nil, err
	}
	return query.NewUserDTO(res.Representative), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Postings
// ─────────────────────────────────────────────────────────────────────────────

func runPost(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	rep := fs.String("rep", "", "representative email")
	title := fs.String("title", "", "title")
	description := fs.String("description", "", "description")
	level := fs.String("level", string(internship.LevelBasic), "BASIC, INTERMEDIATE or ADVANCED")
	major := fs.String("major", "", "preferred major")
	openDate := fs.String("open", "", "first day applications are taken, YYYY-MM-DD")
	closeDate := fs.String("close", "", "last day applications are taken, YYYY-MM-DD")
	slots := fs.Int("slots", 1, "number of places")
	visible := fs.Bool("visible", true, "list the posting for students")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	open, err := parseDay("open", *openDate)
	if err != nil {
		return nil, err
	}
	closing, err := parseDay("close", *closeDate)
	if err != nil {
		return nil, err
	}

	res, err := command.NewCreateInternshipHandler(a.commands).Handle(ctx, command.CreateInternshipCommand{
		RepresentativeID: *rep,
		Title:            *title,
		Description:      *description,
		Level:            *level,
		Major:            *major,
		OpenDate:         open,
		CloseDate:        closing,
		MaxSlots:         *slots,
		Visible:          *visible,
		CorrelationID:    a.requestID,
	})
	if err != nil {
		return nil, err
	}
	return query.NewInternshipDTO(res.Internship), nil
}

func runReviewInternship(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	staff := fs.String("staff", "", "staff id")
	internshipID := fs.String("internship", "", "internship id")
	decision := fs.String("decision", "", "approve or reject")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewReviewInternshipHandler(a.commands).Handle(ctx, command.ReviewInternshipCommand{
		StaffID:       *staff,
		InternshipID:  *internshipID,
		Decision:      command.Decision(*decision),
		CorrelationID: a.requestID,
	})
	if err != nil {
		return nil, err
	}
	return query.NewInternshipDTO(res.Internship), nil
}

func runSearch(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	actor := fs.String("actor", "", "id of the user searching")
	status := fs.String("status", "", "PENDING, APPROVED, REJECTED or FILLED")
	major := fs.String("major", "", "preferred major")
	level := fs.String("level", "", "BASIC, INTERMEDIATE or ADVANCED")
	companyName := fs.String("company", "", "company name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f := internship.NewFilter()
	if *status != "" {
		s, err := internship.ParseStatus(*status)
		if err != nil {
			return nil, err
		}
		f = f.WithStatus(s)
	}
	if *level != "" {
		l, err := internship.ParseLevel(*level)
		if err != nil {
			return nil, err
		}
		f = f.WithLevel(l)
	}
	if *major != "" {
		f = f.WithMajor(*major)
	}
	if *companyName != "" {
		f = f.WithCompany(*companyName)
	}

	q := query.SearchInternshipsQuery{ActorID: *actor}
	if !f.IsEmpty() {
		q.Filter = &f
	}
	return query.NewSearchInternshipsHandler(a.queries).Handle(ctx, q)
}

func parseDay(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: -%s is required", errUsage, name)
	}
	return timeutil.ParseDate(value)
}

// ─────────────────────────────────────────────────────────────────────────────
// Student workflow
// ─────────────────────────────────────────────────────────────────────────────

func runEligible(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	student := fs.String("student", "", "student id")
	date := fs.String("date", "", "day to evaluate, YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	q := query.EligibleInternshipsQuery{StudentID: *student}
	if *date != "" {
		on, err := timeutil.ParseDate(*date)
		if err != nil {
			return nil, err
		}
		q.On = on
	}
	return query.NewEligibleInternshipsHandler(a.queries).Handle(ctx, q)
}

// applicationView is the printed form of an application.
type applicationView struct {
	ID                  string `json:"id"`
	StudentID           string `json:"student_id"`
	InternshipID        string `json:"internship_id"`
	Status              string `json:"status"`
	StudentAccepted     bool   `json:"student_accepted"`
	WithdrawalRequested bool   `json:"withdrawal_requested"`
}

func viewOf(ap *application.Application) applicationView {
	return applicationView{
		ID:                  ap.ID,
		StudentID:           ap.StudentID,
		InternshipID:        ap.InternshipID,
		Status:              string(ap.Status),
		StudentAccepted:     ap.StudentAccepted,
		WithdrawalRequested: ap.WithdrawalRequested,
	}
}

func runApply(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	student := fs.String("student", "", "student id")
	internshipID := fs.String("internship", "", "internship id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewApplyInternshipHandler(a.commands).Handle(ctx, command.ApplyInternshipCommand{
		StudentID:     *student,
		InternshipID:  *internshipID,
		CorrelationID: a.requestID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"application":         viewOf(res.Application),
		"active_applications": res.ActiveApplications,
	}, nil
}

func runAccept(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	student := fs.String("student", "", "student id")
	applicationID := fs.String("application", "", "application id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewAcceptPlacementHandler(a.commands).Handle(ctx, command.AcceptPlacementCommand{
		StudentID:     *student,
		ApplicationID: *applicationID,
		CorrelationID: a.requestID,
	})
	if err != nil {
		return nil, err
	}
	withdrawn := make([]applicationView, 0, len(res.Withdrawn))
	for _, w := range res.Withdrawn {
		withdrawn = append(withdrawn, viewOf(w))
	}
	return map[string]any{
		"application": viewOf(res.Application),
		"withdrawn":   withdrawn,
	}, nil
}

func runApplications(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	student := fs.String("student", "", "student id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return query.NewStudentApplicationsHandler(a.queries).Handle(ctx, query.StudentApplicationsQuery{StudentID: *student})
}

func runReviewApplication(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	rep := fs.String("rep", "", "representative email")
	applicationID := fs.String("application", "", "application id")
	decision := fs.String("decision", "", "approve or reject")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewReviewApplicationHandler(a.commands).Handle(ctx, command.ReviewApplicationCommand{
		RepresentativeID: *rep,
		ApplicationID:    *applicationID,
		Decision:         command.Decision(*decision),
		CorrelationID:    a.requestID,
	})
	if err != nil {
		return nil, err
	}
	return viewOf(res.Application), nil
}

func runRequestWithdrawal(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	student := fs.String("student", "", "student id")
	applicationID := fs.String("application", "", "application id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewRequestWithdrawalHandler(a.commands).Handle(ctx, command.RequestWithdrawalCommand{
		StudentID:     *student,
		ApplicationID: *applicationID,
		CorrelationID: a.requestID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"application":       viewOf(res.Application),
		"already_requested": res.AlreadyRequested,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Staff
// ─────────────────────────────────────────────────────────────────────────────

func runResolveWithdrawal(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	staff := fs.String("staff", "", "staff id")
	applicationID := fs.String("application", "", "application id")
	decision := fs.String("decision", "", "approve or reject")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	res, err := command.NewResolveWithdrawalHandler(a.commands).Handle(ctx, command.ResolveWithdrawalCommand{
		StaffID:       *staff,
		ApplicationID: *applicationID,
		Decision:      command.Decision(*decision),
		CorrelationID: a.requestID,
	})
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"application":   viewOf(res.Application),
		"slot_released": res.SlotReleased,
	}
	if res.Internship != nil {
		out["internship"] = query.NewInternshipDTO(res.Internship)
	}
	return out, nil
}

func runWithdrawals(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	staff := fs.String("staff", "", "staff id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return query.NewWithdrawalRequestsHandler(a.queries).Handle(ctx, query.WithdrawalRequestsQuery{StaffID: *staff})
}

func runReport(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	staff := fs.String("staff", "", "staff id")
	kind := fs.String("kind", string(query.ReportPopularity), "popularity, companies or slots")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return query.NewReportHandler(a.queries).Handle(ctx, query.ReportQuery{
		StaffID: *staff,
		Kind:    query.ReportKind(*kind),
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

func runFeatures(_ context.Context, a *app, fs *flag.FlagSet, args []string) (any, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return a.cfg.Features.States(), nil
}
