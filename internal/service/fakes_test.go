package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/tailor/internal/apperror"
	"github.com/sakif/tailor/internal/model"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory implementations of the repository interfaces. The service
// layer only sees the interfaces, so these let us test validation and
// orchestration without a database. Each fake has an err field to simulate
// a store failure.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePartRepo struct {
	parts  map[model.PartType]map[int64]*model.Part
	nextID int64
	err    error

	// lastFields is what the service handed to Create/Update, after
	// normalization and filtering.
	lastFields model.PartFields
}

func newFakePartRepo() *fakePartRepo {
	return &fakePartRepo{parts: make(map[model.PartType]map[int64]*model.Part)}
}

func (f *fakePartRepo) table(t model.PartType) map[int64]*model.Part {
	if f.parts[t] == nil {
		f.parts[t] = make(map[int64]*model.Part)
	}
	return f.parts[t]
}

func (f *fakePartRepo) sorted(t model.PartType, keep func(*model.Part) bool) []model.Part {
	out := []model.Part{}
	for _, p := range f.table(t) {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakePartRepo) List(_ context.Context, t model.PartType) ([]model.Part, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sorted(t, func(*model.Part) bool { return true }), nil
}

func (f *fakePartRepo) ListByOwner(_ context.Context, t model.PartType, ownerID int64) ([]model.Part, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sorted(t, func(p *model.Part) bool { return p.OwnedBy(ownerID) }), nil
}

func (f *fakePartRepo) Get(_ context.Context, t model.PartType, id int64) (*model.Part, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.table(t)[id]
	if !ok {
		return nil, apperror.NotFound(t.Singular(), id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePartRepo) GetOwned(ctx context.Context, t model.PartType, id, ownerID int64) (*model.Part, error) {
	p, err := f.Get(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(ownerID) {
		return nil, apperror.NotFound(t.Singular(), id)
	}
	return p, nil
}

func (f *fakePartRepo) Create(_ context.Context, t model.PartType, fields model.PartFields, ownerID int64) (*model.Part, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastFields = fields
	f.nextID++
	owner := ownerID
	p := &model.Part{ID: f.nextID, Type: t, OwnerID: &owner, Attributes: map[string]any{}}
	applyFields(p, fields)
	f.table(t)[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakePartRepo) Update(ctx context.Context, t model.PartType, id, ownerID int64, fields model.PartFields) (*model.Part, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastFields = fields
	p, ok := f.table(t)[id]
	if !ok || !p.OwnedBy(ownerID) {
		return nil, apperror.NotFound(t.Singular(), id)
	}
	applyFields(p, fields)
	return f.GetOwned(ctx, t, id, ownerID)
}

func (f *fakePartRepo) Delete(_ context.Context, t model.PartType, id, ownerID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	p, ok := f.table(t)[id]
	if !ok || !p.OwnedBy(ownerID) {
		return false, nil
	}
	delete(f.table(t), id)
	return true, nil
}

func applyFields(p *model.Part, fields model.PartFields) {
	for k, v := range fields {
		switch k {
		case "brand":
			p.Brand, _ = v.(string)
		case "model":
			p.Model, _ = v.(string)
		case "price":
			p.Price, _ = v.(decimal.Decimal)
		default:
			p.Attributes[k] = v
		}
	}
}

type fakeMovementTypes struct {
	ids map[string]int64
	err error
}

func newFakeMovementTypes() *fakeMovementTypes {
	return &fakeMovementTypes{ids: make(map[string]int64)}
}

func (f *fakeMovementTypes) Resolve(_ context.Context, name string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if id, ok := f.ids[name]; ok {
		return id, nil
	}
	id := int64(len(f.ids) + 1)
	f.ids[name] = id
	return id, nil
}

func (f *fakeMovementTypes) List(_ context.Context) ([]model.MovementType, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.MovementType, 0, len(f.ids))
	for name, id := range f.ids {
		out = append(out, model.MovementType{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeBuildRepo struct {
	builds map[int64]*model.Build
	prices map[int64]decimal.Decimal // part id → price, shared across types
	nextID int64
	err    error
}

func newFakeBuildRepo() *fakeBuildRepo {
	return &fakeBuildRepo{
		builds: make(map[int64]*model.Build),
		prices: make(map[int64]decimal.Decimal),
	}
}

func (f *fakeBuildRepo) Create(_ context.Context, ownerID int64, refs model.PartRefs) (*model.Build, error) {
	if f.err != nil {
		return nil, f.err
	}
	total := decimal.Zero
	for _, id := range refs {
		total = total.Add(f.prices[id])
	}
	f.nextID++
	b := &model.Build{ID: f.nextID, OwnerID: ownerID, Refs: refs, Models: map[model.PartType]string{}, TotalPrice: total.Round(2)}
	f.builds[b.ID] = b
	cp := *b
	return &cp, nil
}

func (f *fakeBuildRepo) Get(_ context.Context, ownerID, id int64) (*model.Build, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.builds[id]
	if !ok || b.OwnerID != ownerID {
		return nil, apperror.NotFound("build", id)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBuildRepo) ListByOwner(_ context.Context, ownerID int64) ([]model.Build, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Build
	for _, b := range f.builds {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeBuildRepo) Delete(_ context.Context, ownerID, id int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	b, ok := f.builds[id]
	if !ok || b.OwnerID != ownerID {
		return false, nil
	}
	delete(f.builds, id)
	return true, nil
}

func (f *fakeBuildRepo) SetPublished(_ context.Context, ownerID, id int64, published bool) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	b, ok := f.builds[id]
	if !ok || b.OwnerID != ownerID {
		return false, nil
	}
	b.Published = published
	return true, nil
}

type fakeUserRepo struct {
	users   map[string]*model.User // keyed by subject
	nextID  int64
	err     error
	upserts int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) GetBySubject(_ context.Context, subjectID string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[subjectID]
	if !ok {
		return nil, apperror.NotFound("user", subjectID)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, id model.Identity) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserts++
	u, ok := f.users[id.SubjectID]
	if !ok {
		f.nextID++
		u = &model.User{ID: f.nextID, SubjectID: id.SubjectID}
		f.users[id.SubjectID] = u
	}
	u.Email = id.Email
	u.AvatarURL = id.AvatarURL
	if u.DisplayName == "" {
		u.DisplayName = id.DisplayName
	}
	return f.GetBySubject(ctx, id.SubjectID)
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, subjectID, displayName, bio string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[strings.TrimSpace(subjectID)]
	if !ok {
		return nil, apperror.NotFound("user", subjectID)
	}
	u.DisplayName = displayName
	u.Bio = bio
	return f.GetBySubject(ctx, subjectID)
}
