package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/bursary/apps/api/echo"
	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
	inmemdb "github.com/trezcool/bursary/storage/database/inmem"
	"github.com/trezcool/bursary/tests"
)

type cliEnv struct {
	cli      *commandLine
	out      *bytes.Buffer
	sessRepo session.Repository
	active   session.Session
	next     session.Session
	bca      student.Student
	bba      student.Student
}

func setup(t *testing.T) cliEnv {
	conf := testutil.NewConfig()
	validate, _ := testutil.NewValidator()
	db := inmemdb.Open()

	env := cliEnv{out: new(bytes.Buffer), sessRepo: inmemdb.NewSessionRepository(db)}
	env.active = testutil.CreateSession(
		t, env.sessRepo, "2023-2024", core.NewDate(2023, 7, 1), core.NewDate(2024, 6, 30), true,
	)
	env.next = testutil.CreateSession(
		t, env.sessRepo, "2024-2025", core.NewDate(2024, 7, 1), core.NewDate(2025, 6, 30), false,
	)

	insert := func(s student.Student) (student.Student, error) { return db.InsertStudent(s), nil }
	env.bca = testutil.CreateStudent(t, insert, env.active.ID, "BCA301", "Asha", "BCA", 3)
	env.bba = testutil.CreateStudent(t, insert, env.active.ID, "BBA101", "Meera", "BBA", 1, "Finance")

	env.cli = &commandLine{
		conf:      conf,
		sessions:  session.NewService(db, env.sessRepo),
		directory: student.NewDirectory(inmemdb.NewStudentRepository(db)),
		validate:  validate,
		out:       env.out,
	}
	return env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	check      func(t *testing.T, out string)
}

func (tt cliTest) assertErr(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func runCLI(t *testing.T, env cliEnv, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			env.out.Reset()
			err := env.cli.run(args)
			tt.assertErr(t, err)
			if err == nil && tt.check != nil {
				tt.check(t, env.out.String())
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLI(t, env, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "fee_waivers", "sql"}},
	})
}

func Test_commandLine_createSession(t *testing.T) {
	env := setup(t)

	runCLI(t, env, []cliTest{
		{name: "no args", args: []string{"createsession"}, wantErr: errHelp},
		{name: "missing end", args: []string{"createsession", "-name", "2025-2026", "-start", "2025-07-01"}, wantErr: errHelp},
		{
			name:       "invalid date",
			args:       []string{"createsession", "-name", "2025-2026", "-start", "2025-13-01", "-end", "2026-06-30"},
			wantErrStr: "2025-13-01",
		},
		{
			name:       "end before start",
			args:       []string{"createsession", "-name", "2025-2026", "-start", "2026-06-30", "-end", "2025-07-01"},
			wantErrStr: "end_date must not be before start_date",
		},
		{
			name: "inactive",
			args: []string{"createsession", "-name", " 2025-2026 ", "-start", "2025-07-01", "-end", "2026-06-30"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `"2025-2026" created (2025-07-01 to 2026-06-30, active: false)`)

				active, err := env.sessRepo.GetActiveSession(context.Background())
				require.NoError(t, err)
				assert.Equal(t, env.active.ID, active.ID)
			},
		},
		{
			name: "activate",
			args: []string{"createsession", "-name", "2026-2027", "-start", "2026-07-01", "-end", "2027-06-30", "-activate"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "active: true")

				active, err := env.sessRepo.GetActiveSession(context.Background())
				require.NoError(t, err)
				assert.Equal(t, "2026-2027", active.Name)
			},
		},
	})
}

func Test_commandLine_createSession_invalidDate(t *testing.T) {
	env := setup(t)

	err := env.cli.run([]string{"admin", "createsession", "-name", "x", "-start", "lol", "-end", "2026-06-30"})
	var dateErr *core.DateError
	assert.True(t, errors.As(err, &dateErr))
}

func Test_commandLine_activateSession(t *testing.T) {
	env := setup(t)

	var terminal bool
	var answer string
	isTerminalFunc = func(fd int) bool { return terminal }
	readLineFunc = func() (string, error) { return answer, nil }

	idArg := strconv.FormatInt(env.next.ID, 10)
	activeID := func(t *testing.T) int64 {
		s, err := env.sessRepo.GetActiveSession(context.Background())
		require.NoError(t, err)
		return s.ID
	}

	tests := []struct {
		cliTest
		terminal bool
		answer   string
		wantID   int64
	}{
		{cliTest: cliTest{name: "no args", args: []string{"activatesession"}, wantErr: errHelp}, wantID: env.active.ID},
		{cliTest: cliTest{name: "unknown session", args: []string{"activatesession", "-id", "999"}, wantErrStr: "session not found"}, wantID: env.active.ID},
		{cliTest: cliTest{name: "already active", args: []string{"activatesession", "-id", strconv.FormatInt(env.active.ID, 10)}}, wantID: env.active.ID},
		{cliTest: cliTest{name: "not a terminal", args: []string{"activatesession", "-id", idArg}, wantErr: errNotInteractive}, wantID: env.active.ID},
		{cliTest: cliTest{name: "declined", args: []string{"activatesession", "-id", idArg}, wantErr: errAborted}, terminal: true, answer: "n\n", wantID: env.active.ID},
		{cliTest: cliTest{name: "confirmed", args: []string{"activatesession", "-id", idArg}}, terminal: true, answer: "Yes\n", wantID: env.next.ID},
		{cliTest: cliTest{name: "skip confirmation", args: []string{"activatesession", "-id", strconv.FormatInt(env.active.ID, 10), "-yes"}}, wantID: env.active.ID},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			terminal, answer = tt.terminal, tt.answer
			err := env.cli.run(args)
			tt.assertErr(t, err)
			assert.Equal(t, tt.wantID, activeID(t))
		})
	}
}

func Test_commandLine_students(t *testing.T) {
	env := setup(t)

	runCLI(t, env, []cliTest{
		{
			name: "all",
			args: []string{"students"},
			check: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimSpace(out), "\n")
				require.Len(t, lines, 3)
				assert.Contains(t, lines[0], "ROLL NO")
				assert.Contains(t, out, "BCA301")
				assert.Contains(t, out, "BBA101")
			},
		},
		{
			name: "by department",
			args: []string{"students", "-department", "BBA"},
			check: func(t *testing.T, out string) {
				assert.NotContains(t, out, "BCA301")
				assert.Contains(t, out, "Finance")
			},
		},
		{
			name: "no match",
			args: []string{"students", "-department", "BCA", "-semester", "5"},
			check: func(t *testing.T, out string) {
				assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
			},
		},
	})
}

func Test_commandLine_token(t *testing.T) {
	env := setup(t)

	parse := func(t *testing.T, out string) echoapi.Claims {
		var claims echoapi.Claims
		_, err := jwt.ParseWithClaims(strings.TrimSpace(out), &claims, func(*jwt.Token) (interface{}, error) {
			return []byte(env.cli.conf.SecretKey), nil
		})
		require.NoError(t, err)
		return claims
	}

	runCLI(t, env, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "admin and student", args: []string{"token", "-admin", "-student", "1"}, wantErr: errHelp},
		{name: "unknown student", args: []string{"token", "-student", "999"}, wantErrStr: "student not found"},
		{
			name: "admin",
			args: []string{"token", "-admin", "-name", "Bursar", "-roles", "admin:fees,admin:reports"},
			check: func(t *testing.T, out string) {
				claims := parse(t, out)
				assert.True(t, claims.IsAdmin)
				assert.Equal(t, "admin", claims.Subject)
				assert.Equal(t, "Bursar", claims.Name)
				assert.Equal(t, []string{"admin:fees", "admin:reports"}, claims.Roles)
			},
		},
		{
			name: "student",
			args: []string{"token", "-student", strconv.FormatInt(env.bca.ID, 10)},
			check: func(t *testing.T, out string) {
				claims := parse(t, out)
				assert.False(t, claims.IsAdmin)
				assert.True(t, claims.IsStudent)
				assert.Equal(t, env.bca.ID, claims.StudentID)
				assert.Equal(t, env.bca.UserID, claims.Subject)
				assert.Equal(t, "Asha", claims.Name)
			},
		},
	})
}
