package testsupport

import (
	"context"
	"testing"

	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/model"
	"github.com/goliatone/go-ototahmin/pkg/openapi"
)

// MustLoadContract parses the embedded contract or fails the test.
func MustLoadContract(t *testing.T) *openapi.Contract {
	t.Helper()

	contract, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}
	return contract
}

// MustBuildForm builds the form model for locale from the embedded contract.
func MustBuildForm(t *testing.T, locale string) model.FormModel {
	t.Helper()

	form, err := model.NewBuilder(model.WithLocale(locale)).Build(MustLoadContract(t))
	if err != nil {
		t.Fatalf("build form: %v", err)
	}
	return form
}

// SampleDataset is a small catalog: Toyota with one series and two models,
// and Tofaş without any series.
func SampleDataset() catalog.Dataset {
	return catalog.NewDataset(
		catalog.Brand{Name: "Toyota", Series: []catalog.Series{
			{Name: "Corolla", Models: []string{"1.6 CVT", "1.8 Hybrid"}},
		}},
		catalog.Brand{Name: "Tofaş"},
	)
}

// StaticLoader returns Dataset or Err for every source.
type StaticLoader struct {
	Dataset catalog.Dataset
	Err     error
}

// Load implements catalog.Loader.
func (l StaticLoader) Load(ctx context.Context, _ catalog.Source) (catalog.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Dataset{}, err
	}
	if l.Err != nil {
		return catalog.Dataset{}, l.Err
	}
	return l.Dataset, nil
}

// FixtureSource is a placeholder source for StaticLoader.
func FixtureSource() catalog.Source {
	return catalog.SourceFromFile("testdata/veri.json")
}
