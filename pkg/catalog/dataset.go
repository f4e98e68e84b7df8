package catalog

// Series groups the ordered model names offered under a series.
type Series struct {
	Name   string
	Models []string
}

// Brand groups the ordered series offered under a brand.
type Brand struct {
	Name   string
	Series []Series
}

// Dataset is an ordered, read-only view over the brand → series → models
// mapping. The zero value is an empty dataset and answers every lookup with an
// empty sequence.
type Dataset struct {
	brands []Brand
	index  map[string]int
	series []map[string]int
}

// NewDataset builds a Dataset from the supplied brands. Duplicate names keep
// the position of their first occurrence and the contents of the last one,
// matching how JSON objects with repeated keys are decoded. A model repeated
// within a series is listed once. Entries with an empty name are dropped.
func NewDataset(brands ...Brand) Dataset {
	ds := Dataset{}
	for _, brand := range brands {
		if brand.Name == "" {
			continue
		}
		series := dedupeSeries(brand.Series)
		if ds.index == nil {
			ds.index = make(map[string]int, len(brands))
		}
		if pos, ok := ds.index[brand.Name]; ok {
			ds.brands[pos] = Brand{Name: brand.Name, Series: series}
			ds.series[pos] = seriesIndex(series)
			continue
		}
		ds.index[brand.Name] = len(ds.brands)
		ds.brands = append(ds.brands, Brand{Name: brand.Name, Series: series})
		ds.series = append(ds.series, seriesIndex(series))
	}
	return ds
}

func dedupeSeries(in []Series) []Series {
	if len(in) == 0 {
		return nil
	}
	out := make([]Series, 0, len(in))
	seen := make(map[string]int, len(in))
	for _, s := range in {
		if s.Name == "" {
			continue
		}
		entry := Series{Name: s.Name, Models: dedupeModels(s.Models)}
		if pos, ok := seen[s.Name]; ok {
			out[pos] = entry
			continue
		}
		seen[s.Name] = len(out)
		out = append(out, entry)
	}
	return out
}

func dedupeModels(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, m := range in {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func seriesIndex(series []Series) map[string]int {
	idx := make(map[string]int, len(series))
	for i, s := range series {
		idx[s.Name] = i
	}
	return idx
}

// Len reports the number of brands.
func (d Dataset) Len() int {
	return len(d.brands)
}

// IsZero reports whether the dataset holds no brands.
func (d Dataset) IsZero() bool {
	return len(d.brands) == 0
}

// Brands returns the brand names in source order. The result is never nil.
func (d Dataset) Brands() []string {
	out := make([]string, 0, len(d.brands))
	for _, b := range d.brands {
		out = append(out, b.Name)
	}
	return out
}

// Series returns the series names of brand in source order, or an empty
// sequence when the brand is unknown.
func (d Dataset) Series(brand string) []string {
	pos, ok := d.index[brand]
	if !ok {
		return []string{}
	}
	series := d.brands[pos].Series
	out := make([]string, 0, len(series))
	for _, s := range series {
		out = append(out, s.Name)
	}
	return out
}

// Models returns the model names listed under brand/series in source order,
// or an empty sequence when either level is unknown.
func (d Dataset) Models(brand, series string) []string {
	s, ok := d.lookupSeries(brand, series)
	if !ok {
		return []string{}
	}
	return append(make([]string, 0, len(s.Models)), s.Models...)
}

// HasBrand reports whether brand is a key of the dataset.
func (d Dataset) HasBrand(brand string) bool {
	_, ok := d.index[brand]
	return ok
}

// HasSeries reports whether series is a key under brand.
func (d Dataset) HasSeries(brand, series string) bool {
	_, ok := d.lookupSeries(brand, series)
	return ok
}

// HasModel reports whether model is listed under brand/series.
func (d Dataset) HasModel(brand, series, model string) bool {
	s, ok := d.lookupSeries(brand, series)
	if !ok {
		return false
	}
	for _, m := range s.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Entries returns a deep copy of the dataset contents.
func (d Dataset) Entries() []Brand {
	out := make([]Brand, 0, len(d.brands))
	for _, b := range d.brands {
		series := make([]Series, 0, len(b.Series))
		for _, s := range b.Series {
			series = append(series, Series{Name: s.Name, Models: append([]string(nil), s.Models...)})
		}
		out = append(out, Brand{Name: b.Name, Series: series})
	}
	return out
}

func (d Dataset) lookupSeries(brand, series string) (Series, bool) {
	pos, ok := d.index[brand]
	if !ok {
		return Series{}, false
	}
	spos, ok := d.series[pos][series]
	if !ok {
		return Series{}, false
	}
	return d.brands[pos].Series[spos], true
}
