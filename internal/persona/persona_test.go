package persona

import (
	"testing"

	"threechat/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	all := All()
	assert.Len(t, all, 3)

	seen := map[string]bool{}
	for _, p := range all {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Icon)
		assert.NotEmpty(t, p.SystemInstruction)
	}

	assert.Equal(t, CreativeAssistantID, Default().ID)
	assert.Equal(t, []models.ColorTag{models.ColorCreative, models.ColorCode, models.ColorSage},
		[]models.ColorTag{all[0].Color, all[1].Color, all[2].Color})
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Name = "changed"
	assert.Equal(t, "Creative Assistant", All()[0].Name)
}

func TestFindAndResolve(t *testing.T) {
	p, ok := Find(CodeWizardID)
	assert.True(t, ok)
	assert.Equal(t, "Code Wizard", p.Name)

	_, ok = Find("pirate")
	assert.False(t, ok)

	assert.Equal(t, SarcasticSageID, Resolve(SarcasticSageID).ID)
	assert.Equal(t, Default().ID, Resolve("pirate").ID)
	assert.Equal(t, Default().ID, Resolve("").ID)
}

func TestIndexAndAt(t *testing.T) {
	assert.Equal(t, 0, Index(CreativeAssistantID))
	assert.Equal(t, 2, Index(SarcasticSageID))
	assert.Equal(t, -1, Index("pirate"))

	assert.Equal(t, CodeWizardID, At(1).ID)
	assert.Equal(t, CreativeAssistantID, At(3).ID)
	assert.Equal(t, SarcasticSageID, At(-1).ID)
}
