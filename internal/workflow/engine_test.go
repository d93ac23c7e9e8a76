package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestEngine() *Engine {
	e := NewEngine(nil, func() time.Time { return fixedNow })
	n := 0
	e.newID = func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
	return e
}

var (
	studentS    = models.User{ID: "S001", Name: "Asha Rao", Role: models.RoleStudent, USN: "1RV21CS001"}
	proctorP001 = models.User{ID: "P001", Name: "Dr. Kiran", Role: models.RoleProctor}
	proctorP002 = models.User{ID: "P002", Name: "Dr. Mehta", Role: models.RoleProctor}
	clusterC001 = models.User{ID: "C001", Name: "Dr. Lisa Thompson", Role: models.RoleClusterHead}
	hodH001     = models.User{ID: "H001", Name: "Prof. Robert Chen", Role: models.RoleHOD}
	principal   = models.User{ID: "PRIN001", Name: "Dr. James Anderson", Role: models.RolePrincipal}
	directory   = MapDirectory{"1RV21CS001": "P001"}
)

func submitted(t *testing.T, e *Engine) models.Grievance {
	t.Helper()
	g, err := e.SubmitGrievance(studentS, directory, models.GrievanceAcademic, "Lab projector broken", models.PriorityHigh)
	require.NoError(t, err)
	return g
}

func TestSubmitGrievanceRoundTrip(t *testing.T) {
	e := newTestEngine()
	g := submitted(t, e)

	assert.Equal(t, models.StatusSubmitted, g.Status)
	assert.Equal(t, "P001", g.CurrentHandler)
	assert.Equal(t, models.RoleProctor, g.HandlerRole)
	assert.Equal(t, "S001", g.StudentID)
	assert.Equal(t, "1RV21CS001", g.StudentUSN)
	assert.Equal(t, "Asha Rao", g.StudentName)
	assert.Empty(t, g.Comments)
	assert.Empty(t, g.ForwardHistory)
	assert.Equal(t, fixedNow, g.SubmissionDate)
	assert.Equal(t, fixedNow, g.LastUpdated)
	assert.NotEmpty(t, g.ID)
}

func TestSubmitGrievanceFailures(t *testing.T) {
	e := newTestEngine()
	cases := []struct {
		name     string
		user     models.User
		dir      Directory
		kind     models.GrievanceType
		desc     string
		priority models.Priority
		want     *appErrors.Error
	}{
		{"no proctor", models.User{ID: "S9", Role: models.RoleStudent, USN: "X"}, directory, models.GrievanceAcademic, "d", models.PriorityLow, appErrors.ErrNoProctorAssigned},
		{"nil directory", studentS, nil, models.GrievanceAcademic, "d", models.PriorityLow, appErrors.ErrNoProctorAssigned},
		{"empty mapping", studentS, MapDirectory{"1RV21CS001": ""}, models.GrievanceAcademic, "d", models.PriorityLow, appErrors.ErrNoProctorAssigned},
		{"not a student", proctorP001, directory, models.GrievanceAcademic, "d", models.PriorityLow, appErrors.ErrActionUnauthorized},
		{"bad type", studentS, directory, "sports", "d", models.PriorityLow, appErrors.ErrValidation},
		{"bad priority", studentS, directory, models.GrievanceAcademic, "d", "critical", appErrors.ErrValidation},
		{"blank description", studentS, directory, models.GrievanceNonAcademic, "   ", models.PriorityLow, appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.SubmitGrievance(tc.user, tc.dir, tc.kind, tc.desc, tc.priority)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestSubmitGrievanceFallsBackToLoginID(t *testing.T) {
	e := newTestEngine()
	student := models.User{ID: "S002", Name: "Ravi", Role: models.RoleStudent}
	g, err := e.SubmitGrievance(student, MapDirectory{"S002": "P002"}, models.GrievanceNonAcademic, "Hostel water", models.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, "S002", g.StudentUSN)
	assert.Equal(t, "P002", g.CurrentHandler)
}

func TestEscalationScenario(t *testing.T) {
	e := newTestEngine()
	g := submitted(t, e)

	reviewed, err := e.ApplyStatusUpdate(g, models.StatusUnderReview, proctorP001, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, reviewed.Status)
	assert.Equal(t, "P001", reviewed.CurrentHandler)
	assert.Empty(t, reviewed.Comments)

	target := e.ResolveForwardTargets(models.RoleProctor)[0]
	forwarded, err := e.ForwardGrievance(reviewed, target, proctorP001, "needs funds")
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwarded, forwarded.Status)
	assert.Equal(t, "C001", forwarded.CurrentHandler)
	assert.Equal(t, models.RoleClusterHead, forwarded.HandlerRole)
	require.Len(t, forwarded.ForwardHistory, 1)
	assert.Equal(t, models.ForwardHistory{
		From: "P001", FromRole: models.RoleProctor,
		To: "C001", ToRole: models.RoleClusterHead,
		Timestamp: fixedNow, Reason: "needs funds",
	}, forwarded.ForwardHistory[0])

	assert.False(t, e.CanAct(forwarded, proctorP002))
	assert.False(t, e.CanAct(forwarded, proctorP001))
	assert.True(t, e.CanAct(forwarded, clusterC001))

	_, err = e.ApplyStatusUpdate(forwarded, models.StatusResolved, proctorP002, "")
	assert.True(t, errors.Is(err, appErrors.ErrActionUnauthorized))
}

func TestApplyStatusUpdateAppendsComment(t *testing.T) {
	e := newTestEngine()
	g := submitted(t, e)

	next, err := e.ApplyStatusUpdate(g, models.StatusUnderReview, proctorP001, "  looking into it ")
	require.NoError(t, err)
	require.Len(t, next.Comments, 1)
	c := next.Comments[0]
	assert.Equal(t, "P001", c.UserID)
	assert.Equal(t, "Dr. Kiran", c.UserName)
	assert.Equal(t, models.RoleProctor, c.UserRole)
	assert.Equal(t, "looking into it", c.Message)
	assert.Equal(t, fixedNow, c.Timestamp)

	again, err := e.ApplyStatusUpdate(next, models.StatusResolved, proctorP001, "fixed")
	require.NoError(t, err)
	require.Len(t, again.Comments, 2)
	assert.Equal(t, "looking into it", again.Comments[0].Message)
	assert.Equal(t, "fixed", again.Comments[1].Message)
	assert.Len(t, next.Comments, 1, "input snapshot must not change")
}

func TestApplyStatusUpdateRejectsIllegalStatus(t *testing.T) {
	e := newTestEngine()
	g := submitted(t, e)

	for _, status := range []models.GrievanceStatus{models.StatusSubmitted, models.StatusForwarded, "archived"} {
		_, err := e.ApplyStatusUpdate(g, status, proctorP001, "")
		assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition), "status %s", status)
	}
}

func TestApplyStatusUpdateChecksAuthorizationFirst(t *testing.T) {
	e := newTestEngine()
	g := submitted(t, e)

	_, err := e.ApplyStatusUpdate(g, models.StatusSubmitted, proctorP002, "")
	assert.True(t, errors.Is(err, appErrors.ErrActionUnauthorized))
}

func TestTerminalStatusesCloseTheGrievance(t *testing.T) {
	for _, status := range []models.GrievanceStatus{models.StatusResolved, models.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			e := newTestEngine()
			g := submitted(t, e)
			closed, err := e.ApplyStatusUpdate(g, status, proctorP001, "")
			require.NoError(t, err)

			for _, u := range []models.User{studentS, proctorP001, proctorP002, clusterC001, hodH001, principal} {
				assert.False(t, e.CanAct(closed, u), "user %s", u.ID)
			}
			_, err = e.ApplyStatusUpdate(closed, models.StatusUnderReview, proctorP001, "")
			assert.True(t, errors.Is(err, appErrors.ErrActionUnauthorized))
			_, err = e.ForwardGrievance(closed, e.ResolveForwardTargets(models.RoleProctor)[0], proctorP001, "")
			assert.True(t, errors.Is(err, appErrors.ErrActionUnauthorized))
		})
	}
}

func TestExactlyOneHandlerHoldsAuthorization(t *testing.T) {
	e := newTestEngine()
	g := submitted(t, e)
	users := []models.User{studentS, proctorP001, proctorP002, clusterC001, hodH001, principal}

	count := func(g models.Grievance) int {
		n := 0
		for _, u := range users {
			if e.CanAct(g, u) {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, count(g))
	g, err := e.ForwardGrievance(g, e.ResolveForwardTargets(models.RoleProctor)[0], proctorP001, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count(g))
	target, ok := e.FindForwardTarget(models.RoleClusterHead, "H001")
	require.True(t, ok)
	g, err = e.ForwardGrievance(g, target, clusterC001, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count(g))
	g, err = e.ForwardGrievance(g, e.ResolveForwardTargets(models.RoleHOD)[0], hodH001, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count(g))
	assert.Len(t, g.ForwardHistory, 3)
	g, err = e.ApplyStatusUpdate(g, models.StatusResolved, principal, "done")
	require.NoError(t, err)
	assert.Equal(t, 0, count(g))
}

func TestForwardingAlwaysClimbs(t *testing.T) {
	e := newTestEngine()
	for _, from := range models.Roles {
		for _, target := range e.ResolveForwardTargets(from) {
			assert.Equal(t, Rung(from)+1, Rung(target.HandlerRole), "%s -> %s", from, target.HandlerID)
			for _, next := range e.ResolveForwardTargets(target.HandlerRole) {
				assert.NotEqual(t, from, next.HandlerRole, "back edge from %s", target.HandlerRole)
				assert.Greater(t, Rung(next.HandlerRole), Rung(from))
			}
		}
	}
}

func TestPrincipalHasNoForwardTarget(t *testing.T) {
	e := newTestEngine()
	assert.Empty(t, e.ResolveForwardTargets(models.RolePrincipal))
	assert.Empty(t, e.ResolveForwardTargets(models.RoleStudent))

	g := models.Grievance{ID: "G1", Status: models.StatusForwarded, CurrentHandler: "PRIN001", HandlerRole: models.RolePrincipal}
	_, err := e.ForwardGrievance(g, models.ForwardTarget{HandlerID: "C001", HandlerRole: models.RoleClusterHead}, principal, "")
	assert.True(t, errors.Is(err, appErrors.ErrNoForwardTarget))
}

func TestForwardRejectsTargetOutsideTable(t *testing.T) {
	e := newTestEngine()
	g := submitted(t, e)

	for _, target := range []models.ForwardTarget{
		{HandlerID: "H001", HandlerRole: models.RoleHOD},
		{HandlerID: "C001", HandlerRole: models.RoleHOD},
		{HandlerID: "C999", HandlerRole: models.RoleClusterHead},
	} {
		_, err := e.ForwardGrievance(g, target, proctorP001, "")
		assert.True(t, errors.Is(err, appErrors.ErrNoForwardTarget), "target %+v", target)
	}
}

func TestClusterHeadChoosesHOD(t *testing.T) {
	e := newTestEngine()
	targets := e.ResolveForwardTargets(models.RoleClusterHead)
	require.Len(t, targets, 2)

	g := models.Grievance{ID: "G1", Status: models.StatusForwarded, CurrentHandler: "C001", HandlerRole: models.RoleClusterHead}
	next, err := e.ForwardGrievance(g, targets[1], clusterC001, "IT lab")
	require.NoError(t, err)
	assert.Equal(t, "H002", next.CurrentHandler)
	assert.Equal(t, models.RoleHOD, next.HandlerRole)
}

func TestResolveForwardTargetsReturnsCopy(t *testing.T) {
	e := newTestEngine()
	targets := e.ResolveForwardTargets(models.RoleProctor)
	targets[0].HandlerID = "X"
	assert.Equal(t, "C001", e.ResolveForwardTargets(models.RoleProctor)[0].HandlerID)
}

func TestVisibleTo(t *testing.T) {
	e := newTestEngine()
	all := []models.Grievance{
		{ID: "G1", StudentID: "S001", CurrentHandler: "P001"},
		{ID: "G2", StudentID: "S002", CurrentHandler: "C001"},
		{ID: "G3", StudentID: "S001", CurrentHandler: "C001"},
	}

	ids := func(gs []models.Grievance) []string {
		out := make([]string, 0, len(gs))
		for _, g := range gs {
			out = append(out, g.ID)
		}
		return out
	}

	assert.Equal(t, []string{"G1", "G3"}, ids(e.VisibleTo(studentS, all)))
	assert.Equal(t, []string{"G2", "G3"}, ids(e.VisibleTo(clusterC001, all)))
	assert.Equal(t, []string{"G1"}, ids(e.VisibleTo(proctorP001, all)))
	assert.Empty(t, e.VisibleTo(principal, all))
	assert.Empty(t, e.VisibleTo(models.User{Role: models.RoleProctor}, all))
}
