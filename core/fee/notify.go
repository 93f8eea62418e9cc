package fee

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/student"
)

const notificationTemplate = "fee_notification"

// Notification is a reminder about a Fee sent to the students it targets.
type Notification struct {
	ID               int64       `json:"id" db:"id"`
	FeeID            int64       `json:"fee_id" db:"fee_id"`
	Title            string      `json:"title" db:"title"`
	Message          string      `json:"message" db:"message"`
	TargetDepartment null.String `json:"target_department" db:"target_department"`
	TargetSemester   null.Int    `json:"target_semester" db:"target_semester"`
	TargetProgram    null.String `json:"target_program" db:"target_program"`
	SentBy           string      `json:"sent_by" db:"sent_by"`
	Recipients       int         `json:"recipients" db:"recipients"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"` // UTC
}

// NewNotification contains information needed to notify students about a Fee.
// Department, Semester and Program narrow down the students the fee applies to.
type NewNotification struct {
	Title      string      `json:"title" validate:"required,max=200"`
	Message    string      `json:"message" validate:"required"`
	Department null.String `json:"department" validate:"omitempty,max=50"`
	Semester   null.Int    `json:"semester" validate:"omitempty,semester"`
	Program    null.String `json:"program" validate:"omitempty,max=50"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	nn.Department = cleanNullString(nn.Department)
	nn.Program = cleanNullString(nn.Program)
	if err := validate.Struct(nn); err != nil {
		return err
	}
	if nn.Semester.Valid && !validSemester(nn.Semester.Int) {
		return errInvalidSemester
	}
	return nil
}

// notificationData is the email template data of a fee notification.
type notificationData struct {
	StudentName    string
	Message        string
	FeeName        string
	FeeType        string
	Amount         string
	DueDate        string
	LateFinePerDay string
}

// narrowString intersects a fee scope with an explicit target.
// It returns false when both are set and differ, i.e. no student can be targeted.
func narrowString(scope, target null.String) (null.String, bool) {
	switch {
	case !target.Valid:
		return scope, true
	case !scope.Valid || scope.String == target.String:
		return target, true
	}
	return null.String{}, false
}

func narrowInt(scope, target null.Int) (null.Int, bool) {
	switch {
	case !target.Valid:
		return scope, true
	case !scope.Valid || scope.Int == target.Int:
		return target, true
	}
	return null.Int{}, false
}

// recipients returns the students of the fee's session both bound by the fee and targeted by nn.
func (c *Catalog) recipients(ctx context.Context, f Fee, nn NewNotification) ([]student.Student, error) {
	dept, okDept := narrowString(f.Department, nn.Department)
	sem, okSem := narrowInt(f.Semester, nn.Semester)
	prog, okProg := narrowString(f.Program, nn.Program)
	if !(okDept && okSem && okProg) {
		return nil, nil
	}
	return c.students.QueryStudents(ctx, student.Target{
		SessionID:  f.SessionID,
		Department: dept,
		Semester:   sem,
		Program:    prog,
	})
}

// Notify records a notification about the fee and emails the targeted students.
// Emails are sent asynchronously; failing to send them does not fail the notification.
func (c *Catalog) Notify(ctx context.Context, actor core.Actor, feeID int64, nn NewNotification) (Notification, error) {
	if err := nn.Validate(c.validate); err != nil {
		return Notification{}, err
	}

	f, err := c.repo.GetFeeByID(ctx, feeID)
	if err != nil {
		return Notification{}, errors.Wrap(core.WithFields(err, core.LogFields{"fee_id": feeID}), "getting fee")
	}

	students, err := c.recipients(ctx, f, nn)
	if err != nil {
		return Notification{}, errors.Wrap(core.WithFields(err, core.LogFields{"fee_id": feeID}), "resolving recipients")
	}

	n, err := c.repo.CreateNotification(ctx, Notification{
		FeeID:            f.ID,
		Title:            nn.Title,
		Message:          nn.Message,
		TargetDepartment: nn.Department,
		TargetSemester:   nn.Semester,
		TargetProgram:    nn.Program,
		SentBy:           actor.ID,
		Recipients:       len(students),
		CreatedAt:        nowFunc().UTC(),
	})
	if err != nil {
		err = core.WithFields(err, core.LogFields{"fee_id": feeID, "actor_id": actor.ID})
		return Notification{}, errors.Wrap(err, "creating notification")
	}

	c.mailSvc.SendMessages(notificationMessages(f, n, students)...)
	return n, nil
}

func notificationMessages(f Fee, n Notification, students []student.Student) []*core.EmailMessage {
	var lateFine string
	if f.LateFinePerDay.IsPositive() {
		lateFine = f.LateFinePerDay.StringFixed(2)
	}

	messages := make([]*core.EmailMessage, 0, len(students))
	for _, s := range students {
		if !s.Email.Valid || s.Email.String == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: s.Name, Address: s.Email.String}},
			Subject:      n.Title,
			TemplateName: notificationTemplate,
			TemplateData: notificationData{
				StudentName:    s.Name,
				Message:        n.Message,
				FeeName:        f.FeeName,
				FeeType:        f.FeeType,
				Amount:         f.Amount.StringFixed(2),
				DueDate:        f.DueDate.String(),
				LateFinePerDay: lateFine,
			},
		})
	}
	return messages
}
