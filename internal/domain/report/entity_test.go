package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesKindTitlePathAndFormat(t *testing.T) {
	_, err := New(Kind("bogus"), "title", "path", FormatHTML, nil, nil, "", nil)
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = New(KindCisoWeekly, "", "path", FormatHTML, nil, nil, "", nil)
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = New(KindCisoWeekly, "title", "", FormatHTML, nil, nil, "", nil)
	assert.ErrorIs(t, err, ErrPathRequired)

	_, err = New(KindCisoWeekly, "title", "path", Format("bogus"), nil, nil, "", nil)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestNew_CisoWeeklyHasNoTicketStatus(t *testing.T) {
	r, err := New(KindCisoWeekly, "CISO Weekly", "reports/w1.html", FormatHTML, nil, nil, "summary", nil)
	require.NoError(t, err)
	assert.Nil(t, r.TicketStatus())
	assert.Nil(t, r.TicketPriority())

	events := r.Events()
	require.Len(t, events, 1)
	generated, ok := events[0].(GeneratedEvent)
	require.True(t, ok)
	assert.Equal(t, KindCisoWeekly, generated.Kind)
}

func TestNew_ItTicketStartsPending(t *testing.T) {
	r, err := New(KindItTicket, "IT Ticket", "tickets/t1.txt", FormatTXT, nil, nil, "", nil)
	require.NoError(t, err)
	require.NotNil(t, r.TicketStatus())
	assert.Equal(t, TicketPending, *r.TicketStatus())
}

func TestNewTicket_DerivesPriorityFromFinalScore(t *testing.T) {
	high, err := NewTicket("High", "tickets/high.txt", FormatTXT, 8.5, nil)
	require.NoError(t, err)
	require.NotNil(t, high.TicketPriority())
	assert.Equal(t, TicketPriorityHigh, *high.TicketPriority())

	medium, err := NewTicket("Medium", "tickets/medium.txt", FormatTXT, 6.2, nil)
	require.NoError(t, err)
	assert.Equal(t, TicketPriorityMedium, *medium.TicketPriority())

	low, err := NewTicket("Low", "tickets/low.txt", FormatTXT, 3.0, nil)
	require.NoError(t, err)
	assert.Equal(t, TicketPriorityLow, *low.TicketPriority())
}

func TestTransitionTicket_EnforcesStateMachine(t *testing.T) {
	r, err := NewTicket("Ticket", "tickets/t.txt", FormatTXT, 7.0, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, r.TransitionTicket(TicketCompleted), ErrInvalidTicketTransition)

	require.NoError(t, r.TransitionTicket(TicketInProgress))
	assert.Equal(t, TicketInProgress, *r.TicketStatus())

	require.NoError(t, r.TransitionTicket(TicketCompleted))
	require.NoError(t, r.TransitionTicket(TicketClosed))
	assert.ErrorIs(t, r.TransitionTicket(TicketInProgress), ErrInvalidTicketTransition)
}

func TestTransitionTicket_NotApplicableToCisoWeekly(t *testing.T) {
	r, err := New(KindCisoWeekly, "CISO Weekly", "reports/w1.html", FormatHTML, nil, nil, "", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, r.TransitionTicket(TicketInProgress), ErrTicketStatusNotApplicable)
}

func TestTicketStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, TicketPending.CanTransitionTo(TicketInProgress))
	assert.True(t, TicketPending.CanTransitionTo(TicketClosed))
	assert.False(t, TicketPending.CanTransitionTo(TicketCompleted))
	assert.False(t, TicketClosed.CanTransitionTo(TicketPending))
}

func TestNewSchedule_ValidatesCronAndTimezone(t *testing.T) {
	_, err := NewSchedule("weekly-digest", "", "UTC")
	assert.ErrorIs(t, err, ErrInvalidCronExpression)

	_, err = NewSchedule("weekly-digest", "0 3 * * 1", "")
	assert.ErrorIs(t, err, ErrInvalidTimezone)

	s, err := NewSchedule("weekly-digest", "0 3 * * 1", "UTC")
	require.NoError(t, err)
	assert.True(t, s.Enabled())
}

func TestSchedule_Toggle(t *testing.T) {
	s, err := NewSchedule("weekly-digest", "0 3 * * 1", "UTC")
	require.NoError(t, err)

	s.Toggle()
	assert.False(t, s.Enabled())
	s.Toggle()
	assert.True(t, s.Enabled())
}
