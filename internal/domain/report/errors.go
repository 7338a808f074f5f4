package report

import "errors"

var (
	ErrTitleRequired        = errors.New("report title must not be empty")
	ErrPathRequired         = errors.New("report path must not be empty")
	ErrInvalidKind          = errors.New("report kind must be one of CisoWeekly, ItTicket")
	ErrInvalidFormat        = errors.New("report format must be one of HTML, PDF, TXT, JSON")
	ErrTicketStatusNotApplicable = errors.New("ticket status transitions only apply to ItTicket-kind reports")
	ErrInvalidTicketTransition  = errors.New("invalid ticket status transition")
	ErrInvalidCronExpression    = errors.New("schedule cron expression must not be empty")
	ErrInvalidTimezone          = errors.New("schedule timezone must be a valid IANA timezone name")
)
