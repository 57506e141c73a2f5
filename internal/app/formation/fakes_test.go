package formation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	draftstore "github.com/sparktrack/sparktrack/internal/app/store/drafts"
	finalgroupstore "github.com/sparktrack/sparktrack/internal/app/store/finalgroups"
	invitationstore "github.com/sparktrack/sparktrack/internal/app/store/invitations"
	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/txn"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memDB is an in-memory stand-in for the Mongo stores. It enforces the
// same unique constraints as the production indexes.
type memDB struct {
	mu       sync.Mutex
	clock    time.Time
	students map[string]models.Student
	drafts   map[string]models.Draft            // by group_id
	invites  map[string]models.Invitation       // by request_id
	groups   map[string]models.FinalGroup       // by group_id
	members  map[string]models.FinalGroupMember // by member_id

	// fail injects an error into the named operation.
	fail map[string]error
	// before runs (unlocked) ahead of the named operation.
	before map[string]func()
	// after runs (unlocked) once the named operation has returned.
	after map[string]func()
}

func newMemDB() *memDB {
	return &memDB{
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		students: map[string]models.Student{},
		drafts:   map[string]models.Draft{},
		invites:  map[string]models.Invitation{},
		groups:   map[string]models.FinalGroup{},
		members:  map[string]models.FinalGroupMember{},
		fail:     map[string]error{},
		before:   map[string]func(){},
		after:    map[string]func(){},
	}
}

func (m *memDB) enter(op string) (unlock func(), err error) {
	if fn := m.before[op]; fn != nil {
		delete(m.before, op)
		fn()
	}
	m.mu.Lock()
	if err := m.fail[op]; err != nil {
		m.mu.Unlock()
		return nil, err
	}
	return m.mu.Unlock, nil
}

func (m *memDB) runAfter(op string) {
	if fn := m.after[op]; fn != nil {
		delete(m.after, op)
		fn()
	}
}

func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memDB) addStudent(enrollment, name, class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[enrollment] = models.Student{
		EnrollmentNo: enrollment,
		FullName:     name,
		Class:        class,
		Contact:      "9000000000",
		Email:        enrollment + "@college.test",
	}
}

func (m *memDB) addFinalGroup(groupID, leader string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[groupID] = models.FinalGroup{GroupID: groupID, LeaderID: leader, DraftGroupID: uuid.NewString()}
	m.members[leader] = models.FinalGroupMember{GroupID: groupID, MemberID: leader, IsLeader: true}
}

func (m *memDB) snapshot() *memDB {
	cp := &memDB{
		students: map[string]models.Student{},
		drafts:   map[string]models.Draft{},
		invites:  map[string]models.Invitation{},
		groups:   map[string]models.FinalGroup{},
		members:  map[string]models.FinalGroupMember{},
	}
	for k, v := range m.students {
		cp.students[k] = v
	}
	for k, v := range m.drafts {
		cp.drafts[k] = v
	}
	for k, v := range m.invites {
		cp.invites[k] = v
	}
	for k, v := range m.groups {
		cp.groups[k] = v
	}
	for k, v := range m.members {
		cp.members[k] = v
	}
	return cp
}

func (m *memDB) restore(cp *memDB) {
	m.students, m.drafts, m.invites, m.groups, m.members = cp.students, cp.drafts, cp.invites, cp.groups, cp.members
}

func (m *memDB) invitationsOf(groupID string) []models.Invitation {
	var out []models.Invitation
	for _, inv := range m.invites {
		if inv.GroupID == groupID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

/* ----------------------------- directory ----------------------------- */

type fakeDirectory struct{ *memDB }

func (f fakeDirectory) GetByEnrollment(ctx context.Context, enrollment string) (models.Student, error) {
	unlock, err := f.enter("GetByEnrollment")
	if err != nil {
		return models.Student{}, err
	}
	defer unlock()
	st, ok := f.students[enrollment]
	if !ok {
		return models.Student{}, studentstore.ErrNotFound
	}
	return st, nil
}

func (f fakeDirectory) FindByEnrollments(ctx context.Context, ids []string) ([]models.Student, error) {
	unlock, err := f.enter("FindByEnrollments")
	if err != nil {
		return nil, err
	}
	defer unlock()
	seen := map[string]bool{}
	out := []models.Student{}
	for _, id := range ids {
		if st, ok := f.students[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, st)
		}
	}
	return out, nil
}

/* ------------------------------- drafts ------------------------------ */

type fakeDrafts struct{ *memDB }

func (f fakeDrafts) Create(ctx context.Context, d models.Draft) (models.Draft, error) {
	unlock, err := f.enter("Create")
	if err != nil {
		return models.Draft{}, err
	}
	defer unlock()
	for _, ex := range f.drafts {
		if ex.LeaderID == d.LeaderID && ex.Status == models.DraftStatusDraft {
			return models.Draft{}, draftstore.ErrActiveDraftExists
		}
	}
	now := f.tick()
	d.GroupID = uuid.NewString()
	d.Status = models.DraftStatusDraft
	d.CreatedAt, d.UpdatedAt = now, now
	f.drafts[d.GroupID] = d
	return d, nil
}

func (f fakeDrafts) GetByGroupID(ctx context.Context, groupID string) (models.Draft, error) {
	unlock, err := f.enter("GetByGroupID")
	if err != nil {
		return models.Draft{}, err
	}
	defer unlock()
	d, ok := f.drafts[groupID]
	if !ok {
		return models.Draft{}, draftstore.ErrNotFound
	}
	return d, nil
}

func (f fakeDrafts) ListByLeader(ctx context.Context, leaderID, status string) ([]models.Draft, error) {
	unlock, err := f.enter("ListByLeader")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := []models.Draft{}
	for _, d := range f.drafts {
		if d.LeaderID == leaderID && (status == "" || d.Status == status) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeDrafts) HasActiveDraft(ctx context.Context, leaderID string) (bool, error) {
	unlock, err := f.enter("HasActiveDraft")
	if err != nil {
		return false, err
	}
	defer unlock()
	for _, d := range f.drafts {
		if d.LeaderID == leaderID && d.Status == models.DraftStatusDraft {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeDrafts) Confirm(ctx context.Context, groupID, finalGroupID string) error {
	unlock, err := f.enter("Confirm")
	if err != nil {
		return err
	}
	defer unlock()
	d, ok := f.drafts[groupID]
	if !ok || d.Status != models.DraftStatusDraft {
		return draftstore.ErrNotDraft
	}
	d.Status = models.DraftStatusConfirmed
	d.FinalGroupID = &finalGroupID
	d.UpdatedAt = f.tick()
	f.drafts[groupID] = d
	return nil
}

func (f fakeDrafts) Delete(ctx context.Context, groupID string) (int64, error) {
	unlock, err := f.enter("DeleteDraft")
	if err != nil {
		return 0, err
	}
	defer unlock()
	if _, ok := f.drafts[groupID]; !ok {
		return 0, nil
	}
	delete(f.drafts, groupID)
	return 1, nil
}

/* ----------------------------- invitations --------------------------- */

type fakeInvitations struct{ *memDB }

func (f fakeInvitations) InsertMany(ctx context.Context, groupID string, candidates []string) ([]models.Invitation, error) {
	unlock, err := f.enter("InsertMany")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := make([]models.Invitation, 0, len(candidates))
	for _, sid := range candidates {
		inv := models.Invitation{
			RequestID: uuid.NewString(),
			GroupID:   groupID,
			StudentID: sid,
			Status:    models.InvitationStatusPending,
			CreatedAt: f.tick(),
		}
		out = append(out, inv)
	}
	// Ordered insert: rows before the first duplicate stay.
	for _, inv := range out {
		for _, ex := range f.invites {
			if ex.StudentID == inv.StudentID {
				return out, invitationstore.ErrActiveInvitation
			}
		}
		f.invites[inv.RequestID] = inv
	}
	return out, nil
}

func (f fakeInvitations) GetByRequestID(ctx context.Context, requestID string) (models.Invitation, error) {
	unlock, err := f.enter("GetByRequestID")
	if err != nil {
		return models.Invitation{}, err
	}
	defer unlock()
	inv, ok := f.invites[requestID]
	if !ok {
		return models.Invitation{}, invitationstore.ErrNotFound
	}
	return inv, nil
}

func (f fakeInvitations) ListByGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	unlock, err := f.enter("ListByGroup")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := f.invitationsOf(groupID)
	if out == nil {
		out = []models.Invitation{}
	}
	return out, nil
}

func (f fakeInvitations) ListActiveByStudent(ctx context.Context, studentID string) ([]models.Invitation, error) {
	unlock, err := f.enter("ListActiveByStudent")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := []models.Invitation{}
	for _, inv := range f.invites {
		if inv.StudentID == studentID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeInvitations) ActiveAmong(ctx context.Context, studentIDs []string) (map[string]bool, error) {
	unlock, err := f.enter("ActiveAmong")
	if err != nil {
		return nil, err
	}
	defer unlock()
	want := map[string]bool{}
	for _, id := range studentIDs {
		want[id] = true
	}
	out := map[string]bool{}
	for _, inv := range f.invites {
		if want[inv.StudentID] {
			out[inv.StudentID] = true
		}
	}
	return out, nil
}

func (f fakeInvitations) Accept(ctx context.Context, requestID string, at time.Time) error {
	unlock, err := f.enter("Accept")
	if err != nil {
		return err
	}
	defer unlock()
	inv, ok := f.invites[requestID]
	if !ok || inv.Status != models.InvitationStatusPending {
		return invitationstore.ErrNotPending
	}
	inv.Status = models.InvitationStatusAccepted
	inv.RespondedAt = &at
	f.invites[requestID] = inv
	return nil
}

func (f fakeInvitations) Delete(ctx context.Context, requestID string) (int64, error) {
	unlock, err := f.enter("DeleteInvitation")
	if err != nil {
		return 0, err
	}
	defer unlock()
	if _, ok := f.invites[requestID]; !ok {
		return 0, nil
	}
	delete(f.invites, requestID)
	return 1, nil
}

func (f fakeInvitations) DeleteByGroup(ctx context.Context, groupID string) (int64, error) {
	unlock, err := f.enter("DeleteByGroup")
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id, inv := range f.invites {
		if inv.GroupID == groupID {
			delete(f.invites, id)
			n++
		}
	}
	return n, nil
}

func (f fakeInvitations) DeleteByRequestIDs(ctx context.Context, requestIDs []string) (int64, error) {
	unlock, err := f.enter("DeleteByRequestIDs")
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for _, id := range requestIDs {
		if _, ok := f.invites[id]; ok {
			delete(f.invites, id)
			n++
		}
	}
	return n, nil
}

func (f fakeInvitations) StatsByGroup(ctx context.Context, groupID string) (models.InvitationStats, error) {
	unlock, err := f.enter("StatsByGroup")
	if err != nil {
		return models.InvitationStats{}, err
	}
	defer unlock()
	return models.Tally(f.invitationsOf(groupID)), nil
}

/* ---------------------------- final groups --------------------------- */

type fakeFinals struct{ *memDB }

func (f fakeFinals) GroupIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	defer f.runAfter("GroupIDsWithPrefix")
	unlock, err := f.enter("GroupIDsWithPrefix")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := []string{}
	for id := range f.groups {
		if len(id) == len(prefix)+2 && id[:len(prefix)] == prefix {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f fakeFinals) InsertGroup(ctx context.Context, g models.FinalGroup) (models.FinalGroup, error) {
	unlock, err := f.enter("InsertGroup")
	if err != nil {
		return models.FinalGroup{}, err
	}
	defer unlock()
	if _, ok := f.groups[g.GroupID]; ok {
		return models.FinalGroup{}, finalgroupstore.ErrGroupIDTaken
	}
	f.groups[g.GroupID] = g
	return g, nil
}

func (f fakeFinals) InsertMembers(ctx context.Context, rows []models.FinalGroupMember) error {
	unlock, err := f.enter("InsertMembers")
	if err != nil {
		return err
	}
	defer unlock()
	for _, r := range rows {
		if _, ok := f.members[r.MemberID]; ok {
			return finalgroupstore.ErrAlreadyFinalized
		}
		f.members[r.MemberID] = r
	}
	return nil
}

func (f fakeFinals) IsMember(ctx context.Context, memberID string) (bool, error) {
	unlock, err := f.enter("IsMember")
	if err != nil {
		return false, err
	}
	defer unlock()
	_, ok := f.members[memberID]
	return ok, nil
}

func (f fakeFinals) FinalizedAmong(ctx context.Context, memberIDs []string) (map[string]string, error) {
	unlock, err := f.enter("FinalizedAmong")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := map[string]string{}
	for _, id := range memberIDs {
		if m, ok := f.members[id]; ok {
			out[id] = m.GroupID
		}
	}
	return out, nil
}

func (f fakeFinals) Get(ctx context.Context, groupID string) (models.FinalGroup, []models.FinalGroupMember, error) {
	unlock, err := f.enter("Get")
	if err != nil {
		return models.FinalGroup{}, nil, err
	}
	defer unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return models.FinalGroup{}, nil, finalgroupstore.ErrNotFound
	}
	var rows []models.FinalGroupMember
	for _, m := range f.members {
		if m.GroupID == groupID {
			rows = append(rows, m)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].IsLeader != rows[j].IsLeader {
			return rows[i].IsLeader
		}
		return rows[i].MemberID < rows[j].MemberID
	})
	return g, rows, nil
}

func (f fakeFinals) DeleteGroup(ctx context.Context, headerID primitive.ObjectID) (int64, error) {
	unlock, err := f.enter("DeleteGroup")
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id, m := range f.members {
		if m.HeaderID == headerID {
			delete(f.members, id)
			n++
		}
	}
	for id, g := range f.groups {
		if g.ID == headerID {
			delete(f.groups, id)
			n++
		}
	}
	return n, nil
}

/* -------------------------------- txn -------------------------------- */

// fakeTx rolls the whole memDB back on error when atomic is set, and
// otherwise behaves like a standalone server.
type fakeTx struct {
	db     *memDB
	atomic bool
}

func (f *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) (txn.Result, error) {
	if !f.atomic {
		return txn.Result{Atomic: false}, fn(ctx)
	}
	f.db.mu.Lock()
	snap := f.db.snapshot()
	f.db.mu.Unlock()

	err := fn(ctx)
	if err != nil {
		f.db.mu.Lock()
		f.db.restore(snap)
		f.db.mu.Unlock()
	}
	return txn.Result{Atomic: true}, err
}

/* ------------------------------ harness ------------------------------ */

type harness struct {
	db  *memDB
	tx  *fakeTx
	svc *Service
}

func newHarness(atomic bool, cfg Config) *harness {
	db := newMemDB()
	tx := &fakeTx{db: db, atomic: atomic}
	svc := New(Deps{
		Drafts:      fakeDrafts{db},
		Invitations: fakeInvitations{db},
		Directory:   fakeDirectory{db},
		FinalGroups: fakeFinals{db},
		Tx:          tx,
		Log:         zap.NewNop(),
	}, cfg)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return &harness{db: db, tx: tx, svc: svc}
}
