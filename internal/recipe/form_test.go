package recipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/entity"
)

func goodForm() RecipeForm {
	return RecipeForm{
		Title:               "Banana bread",
		Description:         "Moist and sweet",
		PreparationTime:     "45",
		PreparationTimeUnit: entity.UnitMinutes,
		Servings:            "8",
		ServingsUnit:        entity.UnitPieces,
		PreparationSteps:    "Mash. Mix. Bake.",
	}
}

func TestRecipeFormValid(t *testing.T) {
	f := goodForm()
	f.Title = "  Banana bread  "
	f.Category = "3"
	in, fe := f.Validate()
	require.False(t, fe.Any())
	assert.Equal(t, "Banana bread", in.Title)
	assert.Equal(t, 45, in.PreparationTime)
	assert.Equal(t, 8, in.Servings)
	require.NotNil(t, in.CategoryID)
	assert.Equal(t, int64(3), *in.CategoryID)
}

func TestRecipeFormRequired(t *testing.T) {
	_, fe := RecipeForm{}.Validate()
	for _, field := range []string{"title", "description", "preparation_time", "preparation_time_unit", "servings", "servings_unit", "preparation_steps"} {
		assert.Equal(t, []string{msgRequired}, fe.Get(field), field)
	}
	assert.False(t, fe.Has("category"))
	assert.False(t, fe.Has("cover"))
}

func TestRecipeFormTitleLength(t *testing.T) {
	f := goodForm()
	f.Title = "Pie"
	_, fe := f.Validate()
	assert.Equal(t, []string{msgTitleTooShort}, fe.Get("title"))

	f.Title = strings.Repeat("a", 66)
	_, fe = f.Validate()
	assert.Equal(t, []string{"Ensure this value has at most 65 characters (it has 66)."}, fe.Get("title"))
}

func TestRecipeFormTitleEqualsDescription(t *testing.T) {
	f := goodForm()
	f.Description = f.Title
	_, fe := f.Validate()
	assert.Equal(t, []string{msgTitleEqual}, fe.Get("title"))
	assert.Equal(t, []string{msgDescEqual}, fe.Get("description"))
}

func TestRecipeFormNumbers(t *testing.T) {
	for _, raw := range []string{"0", "-3", "abc", "1.5"} {
		f := goodForm()
		f.PreparationTime = raw
		f.Servings = raw
		_, fe := f.Validate()
		assert.Equal(t, []string{msgPositive}, fe.Get("preparation_time"), raw)
		assert.Equal(t, []string{msgPositive}, fe.Get("servings"), raw)
	}
}

func TestRecipeFormChoices(t *testing.T) {
	f := goodForm()
	f.PreparationTimeUnit = "Days"
	f.ServingsUnit = "Bowls"
	f.Category = "soup"
	_, fe := f.Validate()
	assert.Equal(t, []string{msgChoice}, fe.Get("preparation_time_unit"))
	assert.Equal(t, []string{msgChoice}, fe.Get("servings_unit"))
	assert.Equal(t, []string{msgChoice}, fe.Get("category"))
}

func TestFormFromRecipe(t *testing.T) {
	cat := int64(9)
	f := FormFromRecipe(&entity.Recipe{
		Title:               "Banana bread",
		PreparationTime:     45,
		PreparationTimeUnit: entity.UnitMinutes,
		Servings:            8,
		CategoryID:          &cat,
	})
	assert.Equal(t, "45", f.PreparationTime)
	assert.Equal(t, "8", f.Servings)
	assert.Equal(t, "9", f.Category)
}
