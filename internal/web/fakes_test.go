package web

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	filesModel "github.com/Laisky/fingenius-compliance/internal/web/files/model"
	orgModel "github.com/Laisky/fingenius-compliance/internal/web/organization/model"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/assets"
)

// memOrganizations is an in-memory credential store.
type memOrganizations struct {
	mu   sync.Mutex
	orgs map[primitive.ObjectID]orgModel.Organization
}

func newMemOrganizations() *memOrganizations {
	return &memOrganizations{orgs: map[primitive.ObjectID]orgModel.Organization{}}
}

func (m *memOrganizations) Insert(_ context.Context, org *orgModel.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Email == org.Email {
			return apierr.New(apierr.CodeDuplicateEmail, "Organization already exists")
		}
	}
	m.orgs[org.ID] = *org
	return nil
}

func (m *memOrganizations) FindByEmail(_ context.Context, email string) (*orgModel.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Email == email {
			return &o, nil
		}
	}
	return nil, apierr.New(apierr.CodeNotFound, "Organization not found")
}

func (m *memOrganizations) FindByID(_ context.Context, id primitive.ObjectID) (*orgModel.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orgs[id]; ok {
		return &o, nil
	}
	return nil, apierr.New(apierr.CodeNotFound, "Organization not found")
}

func (m *memOrganizations) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.orgs[id]
	return ok, nil
}

func (m *memOrganizations) update(id primitive.ObjectID, fn func(*orgModel.Organization)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok {
		return apierr.New(apierr.CodeNotFound, "Organization not found")
	}
	fn(&o)
	m.orgs[id] = o
	return nil
}

func (m *memOrganizations) UpdateLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return m.update(id, func(o *orgModel.Organization) { o.LastLogin = &at })
}

func (m *memOrganizations) UpdateProfileImage(_ context.Context, id primitive.ObjectID, url string, at time.Time) error {
	return m.update(id, func(o *orgModel.Organization) {
		o.ProfileImageURL = url
		o.UpdatedAt = at
	})
}

// memFiles is an in-memory file record store.
type memFiles struct {
	mu    sync.Mutex
	files map[primitive.ObjectID]filesModel.File
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[primitive.ObjectID]filesModel.File{}}
}

func (m *memFiles) Create(_ context.Context, file *filesModel.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file.ID] = *file
	return nil
}

func (m *memFiles) list(keep func(filesModel.File) bool) []*filesModel.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*filesModel.File{}
	for _, f := range m.files {
		if keep(f) {
			f := f
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out
}

func (m *memFiles) ListAll(context.Context) ([]*filesModel.File, error) {
	return m.list(func(filesModel.File) bool { return true }), nil
}

func (m *memFiles) ListByOrganization(_ context.Context, orgID primitive.ObjectID) ([]*filesModel.File, error) {
	return m.list(func(f filesModel.File) bool { return f.Organization == orgID }), nil
}

func (m *memFiles) FindByID(_ context.Context, id primitive.ObjectID) (*filesModel.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[id]; ok {
		return &f, nil
	}
	return nil, apierr.New(apierr.CodeNotFound, "File not found")
}

func (m *memFiles) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return apierr.New(apierr.CodeNotFound, "File not found")
	}
	delete(m.files, id)
	return nil
}

func (m *memFiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// memAssets is an in-memory asset store.
type memAssets struct {
	mu          sync.Mutex
	objects     map[string][]byte
	calls       int
	deleteCalls int
	storeErr    error
}

func newMemAssets() *memAssets {
	return &memAssets{objects: map[string][]byte{}}
}

func (m *memAssets) Store(_ context.Context, obj assets.Object) (*assets.Asset, error) {
	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.storeErr != nil {
		return nil, m.storeErr
	}
	id := obj.Folder + "/" + primitive.NewObjectID().Hex() + "-" + assets.SanitizeName(obj.Filename)
	m.objects[id] = body
	return &assets.Asset{URL: "https://assets.example.com/compliance/" + id, AssetID: id}, nil
}

func (m *memAssets) Delete(_ context.Context, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	delete(m.objects, assetID)
	return nil
}

func (m *memAssets) Ping(context.Context) error { return nil }

func (m *memAssets) storeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memAssets) failStore(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErr = err
}

func (m *memAssets) deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls
}

func (m *memAssets) objectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
