package fonts

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-text/typesetting/language"

	"github.com/Mlleters/rich-text/internal/logging"
)

// FaceInfo describes one face of a family registration. Data takes
// precedence over Path; when Data is nil the blob is read from Path.
type FaceInfo struct {
	Name   string
	Path   string
	Data   []byte
	Weight Weight
	Style  Style
}

// FamilyInfo describes a family registration.
type FamilyInfo struct {
	Name string

	// Scripts lists the scripts this family covers. Empty means all.
	Scripts []language.Script

	// LinkedFamilies are consulted for scripts this family does not cover.
	LinkedFamilies []string

	// FallbackFamilies are consulted codepoint-by-codepoint when the chosen
	// face lacks a glyph.
	FallbackFamilies []string

	Faces []FaceInfo
}

// faceRecord owns a face's name and byte blob, with lazily parsed views.
type faceRecord struct {
	name string
	data []byte

	parseOnce sync.Once
	parsed    *parsedFace // nil when parsing failed
}

// familyRecord holds a family's weight-by-style face table, links, and
// covered scripts.
type familyRecord struct {
	lookup           [weightCount][styleCount]FaceID
	linkedFamilies   []FamilyID
	fallbackFamilies []FamilyID
	scripts          map[language.Script]bool // nil means all scripts
	initialized      bool
}

func (fr *familyRecord) face(weight Weight, style Style) FaceID {
	return fr.lookup[weight][style]
}

func (fr *familyRecord) hasScript(script language.Script) bool {
	return fr.scripts == nil || fr.scripts[script]
}

// Registry is the process-wide font store: face blobs and family tables.
// Registration is expected at initialization time; lookups afterwards take
// read locks only.
type Registry struct {
	mu sync.RWMutex

	// Slot 0 of each table is a sentinel so the zero handle stays invalid.
	faces    []*faceRecord
	families []*familyRecord

	facesByName    map[string]FaceID
	familiesByName map[string]FamilyID
}

// NewRegistry creates an empty font registry.
func NewRegistry() *Registry {
	return &Registry{
		faces:          []*faceRecord{nil},
		families:       []*familyRecord{nil},
		facesByName:    make(map[string]FaceID),
		familiesByName: make(map[string]FamilyID),
	}
}

// Family looks up a family by name. The zero handle means not found.
func (r *Registry) Family(name string) FamilyID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.familiesByName[name]
}

// Face resolves the font's (family, weight, style) to a face handle.
// The family must be initialized.
func (r *Registry) Face(f Font) FaceID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fam := r.families[f.family]
	if fam == nil || !fam.initialized {
		panic("fonts: Face called with an uninitialized family")
	}
	return fam.face(f.weight, f.style)
}

// RegisterFamily registers a family: loads its faces (deduplicated by name
// across the registry), fills the weight-by-style table, records covered
// scripts and family links. Returns ErrAlreadyLoaded if the family was
// initialized before, and ErrNoFaces when info carries no faces.
func (r *Registry) RegisterFamily(info FamilyInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	family := r.getOrAddFamily(info.Name)
	rec := r.families[family]

	if rec.initialized {
		return fmt.Errorf("%w: %q", ErrAlreadyLoaded, info.Name)
	}

	if len(info.Scripts) > 0 {
		rec.scripts = make(map[language.Script]bool, len(info.Scripts))
		for _, s := range info.Scripts {
			rec.scripts[s] = true
		}
	} else {
		rec.scripts = nil // all scripts
	}

	rec.linkedFamilies = rec.linkedFamilies[:0]
	for _, name := range info.LinkedFamilies {
		rec.linkedFamilies = append(rec.linkedFamilies, r.getOrAddFamily(name))
	}

	rec.fallbackFamilies = rec.fallbackFamilies[:0]
	for _, name := range info.FallbackFamilies {
		rec.fallbackFamilies = append(rec.fallbackFamilies, r.getOrAddFamily(name))
	}

	if len(info.Faces) == 0 {
		rec.scripts = map[language.Script]bool{}
		rec.linkedFamilies = nil
		rec.fallbackFamilies = nil
		return fmt.Errorf("%w: %q", ErrNoFaces, info.Name)
	}

	var defaultFace FaceID
	for _, faceInfo := range info.Faces {
		face, err := r.getOrAddFace(faceInfo)
		if err != nil {
			logging.Logger().Warn("font face load failed",
				"family", info.Name, "face", faceInfo.Name, "error", err)
			continue
		}
		rec.lookup[faceInfo.Weight][faceInfo.Style] = face

		// Prefer Regular/Normal as the default face, else the first loaded.
		if faceInfo.Weight == WeightRegular && faceInfo.Style == StyleNormal {
			defaultFace = face
		} else if !defaultFace.Valid() {
			defaultFace = face
		}
	}

	// Fill missing cells with the default face.
	for w := Weight(0); w < weightCount; w++ {
		for s := Style(0); s < styleCount; s++ {
			if !rec.lookup[w][s].Valid() {
				rec.lookup[w][s] = defaultFace
			}
		}
	}

	rec.initialized = true
	return nil
}

// FaceName returns the registered name of a face handle.
func (r *Registry) FaceName(face FaceID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(face) >= len(r.faces) || r.faces[face] == nil {
		return ""
	}
	return r.faces[face].name
}

func (r *Registry) getOrAddFamily(name string) FamilyID {
	if id, ok := r.familiesByName[name]; ok {
		return id
	}

	id := FamilyID(len(r.families))
	r.familiesByName[name] = id
	r.families = append(r.families, &familyRecord{})
	return id
}

func (r *Registry) getOrAddFace(info FaceInfo) (FaceID, error) {
	if id, ok := r.facesByName[info.Name]; ok {
		return id, nil
	}

	data := info.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(info.Path)
		if err != nil {
			return 0, fmt.Errorf("fonts: reading face %q: %w", info.Name, err)
		}
	} else {
		// The registry owns its blobs; copy so callers may reuse theirs.
		data = append([]byte(nil), data...)
	}

	id := FaceID(len(r.faces))
	r.facesByName[info.Name] = id
	r.faces = append(r.faces, &faceRecord{name: info.Name, data: data})
	return id, nil
}

// familyIsInitialized reports whether the family has completed registration.
// Callers hold at least a read lock.
func (r *Registry) familyIsInitialized(family FamilyID) bool {
	rec := r.families[family]
	return rec != nil && rec.initialized
}
