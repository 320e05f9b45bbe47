package gazetteer

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/text/unicode/norm"
)

// Gazetteer is an immutable, ordered collection of districts.
type Gazetteer struct {
	districts []District
	idTrie    *patricia.Trie // id -> index
	nameTrie  *patricia.Trie // full name -> []index
	levels    map[Level]int
}

// Stats summarises a loaded gazetteer.
type Stats struct {
	Total        int
	Sido         int
	Sigungu      int
	Eupmyeondong int
}

// New validates districts and freezes a copy of them in the given order.
// Text fields are NFC-normalised so decomposed Hangul from exported
// datasets compares equal to what users type.
func New(districts []District) (*Gazetteer, error) {
	g := &Gazetteer{
		districts: make([]District, len(districts)),
		idTrie:    patricia.NewTrie(),
		nameTrie:  patricia.NewTrie(),
		levels:    make(map[Level]int, len(Levels)),
	}

	for i, d := range districts {
		d = composeDistrict(d)
		if err := d.Validate(); err != nil {
			return nil, &ValidationError{Index: i, ID: d.ID, Err: err}
		}
		if !g.idTrie.Insert(patricia.Prefix(d.ID), i) {
			return nil, &ValidationError{Index: i, ID: d.ID, Err: ErrDuplicateID}
		}

		key := patricia.Prefix(d.FullName)
		if item := g.nameTrie.Get(key); item != nil {
			g.nameTrie.Set(key, append(item.([]int), i))
		} else {
			g.nameTrie.Insert(key, []int{i})
		}

		g.districts[i] = d
		g.levels[d.Level]++
	}

	log.Debugf("Gazetteer built: %d districts (sido=%d, sigungu=%d, eupmyeondong=%d)",
		len(g.districts), g.levels[LevelSido], g.levels[LevelSigungu], g.levels[LevelEupmyeondong])
	return g, nil
}

func composeDistrict(d District) District {
	d.ID = norm.NFC.String(d.ID)
	d.Name = norm.NFC.String(d.Name)
	d.FullName = norm.NFC.String(d.FullName)
	d.Sido = norm.NFC.String(d.Sido)
	d.Sigungu = norm.NFC.String(d.Sigungu)
	d.Eupmyeondong = norm.NFC.String(d.Eupmyeondong)
	return d
}

// Districts returns the backing slice in dataset order.
// It is shared with every caller and must not be modified.
func (g *Gazetteer) Districts() []District {
	return g.districts
}

// Len returns the number of districts.
func (g *Gazetteer) Len() int {
	return len(g.districts)
}

// Lookup finds a district by id.
func (g *Gazetteer) Lookup(id string) (*District, bool) {
	item := g.idTrie.Get(patricia.Prefix(id))
	if item == nil {
		return nil, false
	}
	return &g.districts[item.(int)], true
}

// Within returns every district nested under fullName, in dataset order.
// A row is nested when its full name continues fullName after a space,
// e.g. "서울특별시 강남구 역삼동" under "서울특별시 강남구".
func (g *Gazetteer) Within(fullName string) []*District {
	if fullName == "" {
		return nil
	}

	var indexes []int
	prefix := patricia.Prefix(norm.NFC.String(fullName) + " ")
	err := g.nameTrie.VisitSubtree(prefix, func(_ patricia.Prefix, item patricia.Item) error {
		indexes = append(indexes, item.([]int)...)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting gazetteer subtree: %v", err)
		return nil
	}

	sort.Ints(indexes)
	nested := make([]*District, 0, len(indexes))
	for _, i := range indexes {
		nested = append(nested, &g.districts[i])
	}
	return nested
}

// Stats returns the number of districts per level.
func (g *Gazetteer) Stats() Stats {
	return Stats{
		Total:        len(g.districts),
		Sido:         g.levels[LevelSido],
		Sigungu:      g.levels[LevelSigungu],
		Eupmyeondong: g.levels[LevelEupmyeondong],
	}
}
