package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	echoapi "github.com/trezcool/bursary/apps/api/echo"
	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
	"github.com/trezcool/bursary/fs"
)

var gooseRunFunc = goose.RunFS // mockable

// migrate runs goose against the embedded migrations. args[0] is the goose command.
func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db, appfs.FS, "migrations", args[1:]...)
}

func (cli *commandLine) createSession(name, start, end string, activate bool) error {
	ns := session.NewSession{Name: name}
	var err error
	if ns.StartDate, err = core.ParseDate(start); err != nil {
		return err
	}
	if ns.EndDate, err = core.ParseDate(end); err != nil {
		return err
	}

	ctx := context.Background()
	s, err := cli.sessions.Create(ctx, cli.validate, ns)
	if err != nil {
		return err
	}
	if activate {
		if s, err = cli.sessions.Activate(ctx, s.ID); err != nil {
			return err
		}
	}
	fmt.Fprintf(cli.out, "session %d %q created (%s to %s, active: %t)\n", s.ID, s.Name, s.StartDate, s.EndDate, s.IsActive)
	return nil
}

func (cli *commandLine) activateSession(id int64, yes bool) error {
	ctx := context.Background()
	s, err := cli.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.IsActive {
		fmt.Fprintf(cli.out, "session %d %q is already active\n", s.ID, s.Name)
		return nil
	}
	if !yes {
		if err = cli.confirm(fmt.Sprintf("Activate session %q? Fees will be created in it from now on.", s.Name)); err != nil {
			return err
		}
	}
	if s, err = cli.sessions.Activate(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "session %d %q is now active\n", s.ID, s.Name)
	return nil
}

func (cli *commandLine) listStudents(target student.Target) error {
	students, err := cli.directory.Query(context.Background(), target)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLL NO\tNAME\tDEPARTMENT\tSEMESTER\tPROGRAM")
	for _, s := range students {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", s.ID, s.RollNo, s.Name, s.Department, s.Semester, s.Program.String)
	}
	return w.Flush()
}

// issueToken prints a signed API token for an administrator or for a student.
func (cli *commandLine) issueToken(admin bool, studentID int64, subject, name string, roles []string) error {
	actor := core.Actor{ID: subject, Name: name, IsAdmin: admin}
	if !admin {
		s, err := cli.directory.GetByID(context.Background(), studentID)
		if err != nil {
			return err
		}
		actor.IsStudent = true
		actor.StudentID = s.ID
		if actor.ID == "" {
			actor.ID = s.UserID
		}
		if actor.Name == "" {
			actor.Name = s.Name
		}
		roles = nil
	}
	if actor.ID == "" {
		actor.ID = "admin"
	}

	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, actor, roles...))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
