package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
)

var (
	isTerminalFunc = term.IsTerminal // mockable
	readLineFunc   = readLine        // mockable

	errHelp           = errors.New("help provided")
	errAborted        = errors.New("aborted")
	errNotInteractive = errors.New("stdin is not a terminal, pass -yes to confirm")
)

type commandLine struct {
	conf      *core.Config
	db        *sql.DB
	sessions  *session.Service
	directory *student.Directory
	validate  *validator.Validate
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, create NAME sql...)")
	fmt.Println("  createsession -name NAME -start YYYY-MM-DD -end YYYY-MM-DD [-activate] - create an academic session")
	fmt.Println("  activatesession -id ID [-yes] - make a session the only active one")
	fmt.Println("  students [-session ID] [-department DEPT] [-semester SEM] [-program PROG] - list students")
	fmt.Println("  token -admin|-student ID [-subject SUB] [-name NAME] [-roles R1,R2] - issue an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSessionCmd := flag.NewFlagSet("createsession", flag.ContinueOnError)
	createSessionName := createSessionCmd.String("name", "", "The session name, e.g. 2023-2024.")
	createSessionStart := createSessionCmd.String("start", "", "The first day of the session (YYYY-MM-DD).")
	createSessionEnd := createSessionCmd.String("end", "", "The last day of the session (YYYY-MM-DD).")
	createSessionActivate := createSessionCmd.Bool("activate", false, "Make the new session the active one.")

	activateSessionCmd := flag.NewFlagSet("activatesession", flag.ContinueOnError)
	activateSessionID := activateSessionCmd.Int64("id", 0, "The session ID.")
	activateSessionYes := activateSessionCmd.Bool("yes", false, "Do not ask for confirmation.")

	studentsCmd := flag.NewFlagSet("students", flag.ContinueOnError)
	studentsSession := studentsCmd.Int64("session", 0, "Only list the students of this session.")
	studentsDept := studentsCmd.String("department", "", "Only list the students of this department.")
	studentsSem := studentsCmd.Int("semester", 0, "Only list the students of this semester.")
	studentsProgram := studentsCmd.String("program", "", "Only list the students of this program.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenAdmin := tokenCmd.Bool("admin", false, "Issue an administrator token.")
	tokenStudent := tokenCmd.Int64("student", 0, "Issue a token for the student with this ID.")
	tokenSubject := tokenCmd.String("subject", "", "The token subject (user ID).")
	tokenName := tokenCmd.String("name", "", "The token holder name.")
	tokenRoles := tokenCmd.String("roles", "", "Comma separated administrator roles.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createsession":
		if err := createSessionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSessionName == "" || *createSessionStart == "" || *createSessionEnd == "" {
			createSessionCmd.Usage()
			return errHelp
		}
		return cli.createSession(*createSessionName, *createSessionStart, *createSessionEnd, *createSessionActivate)
	case "activatesession":
		if err := activateSessionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *activateSessionID <= 0 {
			activateSessionCmd.Usage()
			return errHelp
		}
		return cli.activateSession(*activateSessionID, *activateSessionYes)
	case "students":
		if err := studentsCmd.Parse(args[2:]); err != nil {
			return err
		}
		target := student.Target{SessionID: *studentsSession}
		if *studentsDept != "" {
			target.Department.SetValid(*studentsDept)
		}
		if *studentsSem > 0 {
			target.Semester.SetValid(*studentsSem)
		}
		if *studentsProgram != "" {
			target.Program.SetValid(*studentsProgram)
		}
		return cli.listStudents(target)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenAdmin == (*tokenStudent != 0) { // exactly one of both
			tokenCmd.Usage()
			return errHelp
		}
		var roles []string
		if *tokenRoles != "" {
			roles = strings.Split(*tokenRoles, ",")
		}
		return cli.issueToken(*tokenAdmin, *tokenStudent, *tokenSubject, *tokenName, roles)
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question on the terminal.
func (cli *commandLine) confirm(question string) error {
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return errNotInteractive
	}
	fmt.Fprintf(cli.out, "%s [y/N]: ", question)
	answer, err := readLineFunc()
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

func readLine() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}
