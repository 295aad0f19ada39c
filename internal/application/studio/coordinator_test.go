package studio_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alchemorsel/studio/internal/application/studio"
	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
	"github.com/alchemorsel/studio/test/testutils"
)

const (
	msgIngredients    = "Please enter some ingredients first."
	msgGeneration     = "Sorry, we couldn't generate a recipe. Please try again."
	msgImage          = "We couldn't create an image for this recipe."
	msgVideo          = "We couldn't create a video for this recipe. Please try again."
	msgVideoCancelled = "Video generation was cancelled."
)

var fixedNow = time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)

type countingRecorder struct {
	mu             sync.Mutex
	storageFailed  []string
	videoOutcomes  []string
	imageOutcomes  []string
	videoPolls     int
	videoJobsStart int
}

func (r *countingRecorder) VideoJobStarted() {
	r.mu.Lock()
	r.videoJobsStart++
	r.mu.Unlock()
}

func (r *countingRecorder) VideoJobFinished(outcome string, _ time.Duration) {
	r.mu.Lock()
	r.videoOutcomes = append(r.videoOutcomes, outcome)
	r.mu.Unlock()
}

func (r *countingRecorder) VideoPolled() {
	r.mu.Lock()
	r.videoPolls++
	r.mu.Unlock()
}

func (r *countingRecorder) ImageAttempted(outcome string) {
	r.mu.Lock()
	r.imageOutcomes = append(r.imageOutcomes, outcome)
	r.mu.Unlock()
}

func (r *countingRecorder) StorageFailed(op string) {
	r.mu.Lock()
	r.storageFailed = append(r.storageFailed, op)
	r.mu.Unlock()
}

// CoordinatorTestSuite drives the studio lifecycle against mocked
// generation and in-memory persistence
type CoordinatorTestSuite struct {
	suite.Suite
	gateway  *testutils.MockGateway
	kv       *memory.Store
	media    *testutils.MemoryMediaStore
	events   *testutils.EventRecorder
	recorder *countingRecorder
	factory  *testutils.RecipeFactory
	logs     *observer.ObservedLogs
	ctx      context.Context

	// waiter hooks the poll interval; nil returns immediately
	waiter   func(ctx context.Context, d time.Duration) error
	waits    atomic.Int32
	interval atomic.Int64

	coordinator *studio.Coordinator
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.gateway = testutils.NewMockGateway()
	s.kv = memory.NewStore()
	s.media = testutils.NewMemoryMediaStore()
	s.events = &testutils.EventRecorder{}
	s.recorder = &countingRecorder{}
	s.factory = testutils.NewRecipeFactory(7)
	s.ctx = context.Background()
	s.waiter = nil
	s.waits.Store(0)
	s.interval.Store(0)
	s.coordinator = s.newCoordinator(studio.Config{RecipientEmail: "chef@example.com"})
}

func (s *CoordinatorTestSuite) TearDownTest() {
	require.NoError(s.T(), s.coordinator.Close())
	s.gateway.AssertExpectations(s.T())
}

func (s *CoordinatorTestSuite) newCoordinator(cfg studio.Config) *studio.Coordinator {
	core, logs := observer.New(zap.DebugLevel)
	s.logs = logs
	return studio.NewCoordinator(s.gateway, s.kv, s.media, cfg, zap.New(core),
		studio.WithClock(func() time.Time { return fixedNow }),
		studio.WithRecorder(s.recorder),
		studio.WithEventPublisher(s.events),
		studio.WithWaiter(func(ctx context.Context, d time.Duration) error {
			s.waits.Add(1)
			s.interval.Store(int64(d))
			if s.waiter != nil {
				return s.waiter(ctx, d)
			}
			return ctx.Err()
		}),
	)
}

// withIngredients stores a generation-ready form
func (s *CoordinatorTestSuite) withIngredients() recipe.FormState {
	form, err := s.coordinator.UpdateForm(s.ctx, s.factory.Form())
	require.NoError(s.T(), err)
	return form
}

func imageFor(name string) interface{} {
	return mock.MatchedBy(func(req outbound.ImageRequest) bool { return req.RecipeName == name })
}

// generate produces an active recipe named name whose image fetch returns
// imageURL, or fails when imageURL is empty
func (s *CoordinatorTestSuite) generate(name, imageURL string) recipe.Recipe {
	generated := s.factory.Named(name)
	s.gateway.On("CreateRecipe", mock.Anything, mock.Anything).Return(&generated, nil).Once()
	if imageURL != "" {
		s.gateway.On("CreateImage", mock.Anything, imageFor(name)).Return(imageURL, nil).Once()
	} else {
		s.gateway.On("CreateImage", mock.Anything, imageFor(name)).Return("", apperrors.NewGatewayError("no image", nil)).Once()
	}

	r, err := s.coordinator.Generate(s.ctx, nil)
	require.NoError(s.T(), err)
	s.coordinator.Wait()
	return *r
}

func (s *CoordinatorTestSuite) persisted(key string, target interface{}) bool {
	raw, err := s.kv.Get(s.ctx, key)
	if errors.Is(err, outbound.ErrKeyNotFound) {
		return false
	}
	require.NoError(s.T(), err)
	require.NoError(s.T(), json.Unmarshal(raw, target))
	return true
}

func (s *CoordinatorTestSuite) seed(key string, value interface{}) {
	raw, err := json.Marshal(value)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.kv.Set(s.ctx, key, raw))
}

func (s *CoordinatorTestSuite) TestLoad_Defaults() {
	// Act
	require.NoError(s.T(), s.coordinator.Load(s.ctx))

	// Assert
	state := s.coordinator.State()
	assert.Equal(s.T(), recipe.DefaultForm(), state.Form)
	assert.Nil(s.T(), state.ActiveRecipe)
	assert.Empty(s.T(), state.SavedRecipes)
	assert.False(s.T(), state.IsLoading)
	assert.Contains(s.T(), s.events.Names(), recipe.EventStateLoaded)
}

func (s *CoordinatorTestSuite) TestLoad_RestoresAndResetsStaleFlags() {
	// Arrange
	legacy := s.factory.Named("Legacy Stew")
	legacy.ImageURL = testutils.SampleImageURL
	legacy.IsVideoGenerating = true
	other := testutils.NewRecipeBuilder().WithName("Other").WithImage(testutils.SampleImageURL).Build()
	s.seed(studio.KeySavedRecipes, []recipe.Recipe{legacy, other})
	active := legacy
	s.seed(studio.KeyCurrentRecipe, active)
	s.seed(studio.KeyFormState, map[string]interface{}{
		"ingredients": "beans",
		"mealType":    "Brunch",
		"language":    "es",
	})

	// Act
	require.NoError(s.T(), s.coordinator.Load(s.ctx))
	s.coordinator.Wait()

	// Assert
	state := s.coordinator.State()
	require.Len(s.T(), state.SavedRecipes, 2)
	restored := state.SavedRecipes[0]
	assert.NotEqual(s.T(), uuid.Nil, restored.ID, "legacy records get an id")
	assert.False(s.T(), restored.IsVideoGenerating, "no job survives a restart")

	require.NotNil(s.T(), state.ActiveRecipe)
	assert.Equal(s.T(), restored.ID, state.ActiveRecipe.ID, "active recipe adopts the saved entry's id")
	assert.False(s.T(), state.ActiveRecipe.IsVideoGenerating)
	assert.True(s.T(), state.IsSaved)

	assert.Equal(s.T(), "beans", state.Form.Ingredients)
	assert.Equal(s.T(), recipe.MealTypeAny, state.Form.MealType, "unknown values fall back to defaults")
	assert.Equal(s.T(), recipe.LanguageSpanish, state.Form.Language)

	var saved []recipe.Recipe
	require.True(s.T(), s.persisted(studio.KeySavedRecipes, &saved))
	assert.False(s.T(), saved[0].IsVideoGenerating, "the reset is written back")
	assert.Equal(s.T(), restored.ID, saved[0].ID)
}

func (s *CoordinatorTestSuite) TestLoad_FetchesMissingImage() {
	// Arrange
	active := testutils.NewRecipeBuilder().WithName("Bare").Build()
	s.seed(studio.KeyCurrentRecipe, active)
	s.gateway.On("CreateImage", mock.Anything, imageFor("Bare")).Return(testutils.SampleImageURL, nil).Once()

	// Act
	require.NoError(s.T(), s.coordinator.Load(s.ctx))
	s.coordinator.Wait()

	// Assert
	state := s.coordinator.State()
	require.NotNil(s.T(), state.ActiveRecipe)
	assert.Equal(s.T(), testutils.SampleImageURL, state.ActiveRecipe.ImageURL)
}

func (s *CoordinatorTestSuite) TestGenerate_BlankIngredients() {
	// Arrange
	form := recipe.DefaultForm()
	form.Ingredients = " "

	// Act
	_, err := s.coordinator.Generate(s.ctx, &form)

	// Assert
	assert.Equal(s.T(), apperrors.CodeValidationFailed, apperrors.GetCode(err))
	assert.Equal(s.T(), msgIngredients, apperrors.MessageOf(err))
	assert.Equal(s.T(), msgIngredients, s.coordinator.State().Error)
	s.gateway.AssertNotCalled(s.T(), "CreateRecipe", mock.Anything, mock.Anything)
}

func (s *CoordinatorTestSuite) TestGenerate_Success() {
	// Arrange
	s.withIngredients()

	// Act
	r := s.generate("Tomato Soup", testutils.SampleImageURL)

	// Assert
	testutils.NewRecipeAssertions(s.T()).Complete(&r)
	state := s.coordinator.State()
	require.NotNil(s.T(), state.ActiveRecipe)
	assert.True(s.T(), state.ActiveRecipe.SameAs(r))
	assert.Equal(s.T(), testutils.SampleImageURL, state.ActiveRecipe.ImageURL)
	assert.False(s.T(), state.IsSaved)
	assert.Empty(s.T(), state.Error)

	var stored recipe.Recipe
	require.True(s.T(), s.persisted(studio.KeyCurrentRecipe, &stored))
	assert.Equal(s.T(), testutils.SampleImageURL, stored.ImageURL)

	assert.Equal(s.T(), []string{
		recipe.EventFormUpdated,
		recipe.EventGenerationBegan,
		recipe.EventRecipeGenerated,
		recipe.EventImageAttached,
	}, s.events.Names())
	assert.Equal(s.T(), []string{"success"}, s.recorder.imageOutcomes)
}

func (s *CoordinatorTestSuite) TestGenerate_WithFormPersistsIt() {
	// Arrange
	form := s.factory.Form()
	form.DietaryOptions = []recipe.DietaryOption{"vegan"}
	generated := s.factory.Named("Vegan Bowl")
	s.gateway.On("CreateRecipe", mock.Anything, mock.MatchedBy(func(f recipe.FormState) bool {
		return len(f.DietaryOptions) == 1 && f.DietaryOptions[0] == recipe.DietaryVegan
	})).Return(&generated, nil).Once()
	s.gateway.On("CreateImage", mock.Anything, imageFor("Vegan Bowl")).Return(testutils.SampleImageURL, nil).Once()

	// Act
	_, err := s.coordinator.Generate(s.ctx, &form)
	s.coordinator.Wait()

	// Assert
	require.NoError(s.T(), err)
	var stored recipe.FormState
	require.True(s.T(), s.persisted(studio.KeyFormState, &stored))
	assert.Equal(s.T(), []recipe.DietaryOption{recipe.DietaryVegan}, stored.DietaryOptions)
}

func (s *CoordinatorTestSuite) TestGenerate_InvalidForm() {
	form := s.factory.Form()
	form.MealType = "Brunch"

	_, err := s.coordinator.Generate(s.ctx, &form)

	assert.Equal(s.T(), apperrors.CodeValidationFailed, apperrors.GetCode(err))
}

func (s *CoordinatorTestSuite) TestGenerate_FailureClearsPrevious() {
	// Arrange
	s.withIngredients()
	s.generate("First", testutils.SampleImageURL)
	s.gateway.On("CreateRecipe", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewGatewayError("upstream", errors.New("503"))).Once()

	// Act
	_, err := s.coordinator.Generate(s.ctx, nil)

	// Assert
	require.Error(s.T(), err)
	assert.Equal(s.T(), apperrors.CodeGateway, apperrors.GetCode(err))
	assert.Equal(s.T(), msgGeneration, apperrors.MessageOf(err))
	state := s.coordinator.State()
	assert.Nil(s.T(), state.ActiveRecipe)
	assert.Equal(s.T(), msgGeneration, state.Error)
	assert.False(s.T(), state.IsLoading)
	assert.False(s.T(), s.persisted(studio.KeyCurrentRecipe, &recipe.Recipe{}))
}

func (s *CoordinatorTestSuite) TestGenerate_ConcurrentRequestConflicts() {
	// Arrange
	s.withIngredients()
	generated := s.factory.Named("Slow Roast")
	started := make(chan struct{})
	release := make(chan struct{})
	s.gateway.On("CreateRecipe", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&generated, nil).Once()
	s.gateway.On("CreateImage", mock.Anything, imageFor("Slow Roast")).Return(testutils.SampleImageURL, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := s.coordinator.Generate(s.ctx, nil)
		done <- err
	}()
	<-started

	// Act
	loading := s.coordinator.State().IsLoading
	_, err := s.coordinator.Generate(s.ctx, nil)
	close(release)

	// Assert
	assert.True(s.T(), loading)
	assert.Equal(s.T(), apperrors.CodeConflict, apperrors.GetCode(err))
	require.NoError(s.T(), <-done)
	s.coordinator.Wait()
}

func (s *CoordinatorTestSuite) TestImage_FailureIsShownOnceAndNotRetried() {
	// Arrange
	s.withIngredients()
	s.generate("Plain Rice", "")

	// Act
	state := s.coordinator.State()
	_, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)
	_, err = s.coordinator.SelectSaved(s.ctx, "Plain Rice")
	require.NoError(s.T(), err)
	s.coordinator.Wait()

	// Assert
	assert.Equal(s.T(), msgImage, state.ImageError)
	assert.Empty(s.T(), s.coordinator.State().ImageError, "selecting clears errors")
	s.gateway.AssertNumberOfCalls(s.T(), "CreateImage", 1)
	assert.Equal(s.T(), []string{"failure"}, s.recorder.imageOutcomes)
}

func (s *CoordinatorTestSuite) TestImage_LateFailureForReplacedRecipeIsIgnored() {
	// Arrange
	s.withIngredients()
	first := s.factory.Named("First")
	second := s.factory.Named("Second")
	release := make(chan struct{})
	s.gateway.On("CreateRecipe", mock.Anything, mock.Anything).Return(&first, nil).Once()
	s.gateway.On("CreateRecipe", mock.Anything, mock.Anything).Return(&second, nil).Once()
	s.gateway.On("CreateImage", mock.Anything, imageFor("First")).
		Run(func(mock.Arguments) { <-release }).
		Return("", apperrors.NewGatewayError("slow failure", nil)).Once()
	s.gateway.On("CreateImage", mock.Anything, imageFor("Second")).Return(testutils.SampleImageURL, nil).Once()

	// Act
	_, err := s.coordinator.Generate(s.ctx, nil)
	require.NoError(s.T(), err)
	_, err = s.coordinator.Generate(s.ctx, nil)
	require.NoError(s.T(), err)
	close(release)
	s.coordinator.Wait()

	// Assert
	state := s.coordinator.State()
	require.NotNil(s.T(), state.ActiveRecipe)
	assert.Equal(s.T(), "Second", state.ActiveRecipe.Name)
	assert.Equal(s.T(), testutils.SampleImageURL, state.ActiveRecipe.ImageURL)
	assert.Empty(s.T(), state.ImageError)
}

func (s *CoordinatorTestSuite) TestSave_IsIdempotentByName() {
	// Arrange
	s.withIngredients()
	original := s.generate("Tomato Soup", testutils.SampleImageURL)

	// Act
	saved, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)
	again, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)

	s.generate("Tomato Soup", testutils.SampleImageURL)
	_, err = s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)

	// Assert
	require.NotNil(s.T(), saved.SavedAt)
	assert.True(s.T(), saved.SavedAt.Equal(fixedNow))
	assert.True(s.T(), again.SameAs(original))

	state := s.coordinator.State()
	require.Len(s.T(), state.SavedRecipes, 1)
	entry := state.SavedRecipes[0]
	assert.True(s.T(), entry.SameAs(original), "the original entry is kept")
	assert.Equal(s.T(), original.Description, entry.Description)
	assert.True(s.T(), state.IsSaved, "a same-named active recipe reads as saved")

	var stored []recipe.Recipe
	require.True(s.T(), s.persisted(studio.KeySavedRecipes, &stored))
	assert.Len(s.T(), stored, 1)
}

func (s *CoordinatorTestSuite) TestSave_CarriesRating() {
	// Arrange
	s.withIngredients()
	s.generate("Shakshuka", testutils.SampleImageURL)
	_, err := s.coordinator.Rate(s.ctx, 5)
	require.NoError(s.T(), err)

	// Act
	saved, err := s.coordinator.Save(s.ctx)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 5, saved.Rating)
	state := s.coordinator.State()
	require.Len(s.T(), state.SavedRecipes, 1)
	assert.Equal(s.T(), 5, state.SavedRecipes[0].Rating)

	var stored []recipe.Recipe
	require.True(s.T(), s.persisted(studio.KeySavedRecipes, &stored))
	require.Len(s.T(), stored, 1)
	assert.Equal(s.T(), 5, stored[0].Rating)
}

func (s *CoordinatorTestSuite) TestImage_ArrivingAfterSaveReconciles() {
	// Arrange
	s.withIngredients()
	generated := s.factory.Named("Slow Roast")
	release := make(chan struct{})
	s.gateway.On("CreateRecipe", mock.Anything, mock.Anything).Return(&generated, nil).Once()
	s.gateway.On("CreateImage", mock.Anything, imageFor("Slow Roast")).
		Run(func(mock.Arguments) { <-release }).
		Return(testutils.SampleImageURL, nil).Once()
	_, err := s.coordinator.Generate(s.ctx, nil)
	require.NoError(s.T(), err)

	// Act
	saved, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)
	close(release)
	s.coordinator.Wait()

	// Assert
	assert.Empty(s.T(), saved.ImageURL, "saved before the image landed")
	state := s.coordinator.State()
	require.Len(s.T(), state.SavedRecipes, 1)
	assert.Equal(s.T(), testutils.SampleImageURL, state.SavedRecipes[0].ImageURL)
	assert.Equal(s.T(), testutils.SampleImageURL, state.ActiveRecipe.ImageURL)

	var stored []recipe.Recipe
	require.True(s.T(), s.persisted(studio.KeySavedRecipes, &stored))
	require.Len(s.T(), stored, 1)
	assert.Equal(s.T(), testutils.SampleImageURL, stored[0].ImageURL)
}

func (s *CoordinatorTestSuite) TestSave_RequiresActiveRecipe() {
	_, err := s.coordinator.Save(s.ctx)

	assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(err))
}

func (s *CoordinatorTestSuite) TestDelete_TwiceIsNoOp() {
	// Arrange
	s.withIngredients()
	s.generate("Pho", testutils.SampleImageURL)
	_, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)

	// Act
	first := s.coordinator.Delete(s.ctx, "Pho")
	second := s.coordinator.Delete(s.ctx, "Pho")

	// Assert
	require.NoError(s.T(), first)
	require.NoError(s.T(), second)
	state := s.coordinator.State()
	assert.Empty(s.T(), state.SavedRecipes)
	assert.Nil(s.T(), state.ActiveRecipe, "the displayed recipe is cleared")
	assert.False(s.T(), s.persisted(studio.KeyCurrentRecipe, &recipe.Recipe{}))

	deletions := 0
	for _, name := range s.events.Names() {
		if name == recipe.EventRecipeDeleted {
			deletions++
		}
	}
	assert.Equal(s.T(), 1, deletions)
}

func (s *CoordinatorTestSuite) TestDelete_KeepsOtherActiveRecipe() {
	// Arrange
	s.withIngredients()
	s.generate("Saved One", testutils.SampleImageURL)
	_, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)
	s.generate("Fresh One", testutils.SampleImageURL)

	// Act
	require.NoError(s.T(), s.coordinator.Delete(s.ctx, "Saved One"))

	// Assert
	state := s.coordinator.State()
	require.NotNil(s.T(), state.ActiveRecipe)
	assert.Equal(s.T(), "Fresh One", state.ActiveRecipe.Name)
}

func (s *CoordinatorTestSuite) TestRate() {
	// Arrange
	s.withIngredients()
	s.generate("Curry", testutils.SampleImageURL)
	_, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)

	// Act
	_, tooLow := s.coordinator.Rate(s.ctx, 0)
	_, tooHigh := s.coordinator.Rate(s.ctx, 6)
	rated, err := s.coordinator.Rate(s.ctx, 4)

	// Assert
	assert.Equal(s.T(), apperrors.CodeValidationFailed, apperrors.GetCode(tooLow))
	assert.Equal(s.T(), apperrors.CodeValidationFailed, apperrors.GetCode(tooHigh))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 4, rated.Rating)

	state := s.coordinator.State()
	assert.Equal(s.T(), 4, state.ActiveRecipe.Rating)
	assert.Equal(s.T(), 4, state.SavedRecipes[0].Rating, "the saved entry follows")
}

func (s *CoordinatorTestSuite) TestRate_RequiresActiveRecipe() {
	_, err := s.coordinator.Rate(s.ctx, 3)

	assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(err))
}

func (s *CoordinatorTestSuite) TestUpdateNotes() {
	// Arrange
	s.withIngredients()
	s.generate("Paella", testutils.SampleImageURL)
	_, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)

	// Act
	updated, err := s.coordinator.UpdateNotes(s.ctx, "Paella", "less saffron")
	_, missing := s.coordinator.UpdateNotes(s.ctx, "Risotto", "x")

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "less saffron", updated.Notes)
	assert.Equal(s.T(), "less saffron", s.coordinator.State().ActiveRecipe.Notes)
	assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(missing))
}

func (s *CoordinatorTestSuite) TestSearchSaved() {
	s.withIngredients()
	for _, name := range []string{"Lemon Tart", "Apple Crumble", "Lemon Chicken"} {
		s.generate(name, testutils.SampleImageURL)
		_, err := s.coordinator.Save(s.ctx)
		require.NoError(s.T(), err)
	}

	found := s.coordinator.SearchSaved("lemon")

	require.Len(s.T(), found, 2)
	assert.Equal(s.T(), "Lemon Chicken", found[0].Name)
	assert.Equal(s.T(), "Lemon Tart", found[1].Name)
}

// expectVideo wires a video job that finishes after polls status checks
func (s *CoordinatorTestSuite) expectVideo(name string, polls int, artifact *outbound.Artifact) {
	op := &outbound.VideoOperation{Name: "operations/" + name}
	s.gateway.On("InitiateVideo", mock.Anything, mock.MatchedBy(func(req outbound.VideoRequest) bool {
		return req.RecipeName == name && req.Base64ImageDataURL == testutils.SampleImageURL
	})).Return(op, nil).Once()
	if polls > 1 {
		s.gateway.On("PollVideo", mock.Anything, mock.Anything).Return(op, nil).Times(polls - 1)
	}
	done := &outbound.VideoOperation{
		Name: op.Name,
		Done: true,
		Response: &outbound.VideoOperationResponse{
			GeneratedVideos: []outbound.GeneratedVideo{{Video: outbound.VideoFile{URI: "https://files/" + name}}},
		},
	}
	s.gateway.On("PollVideo", mock.Anything, mock.Anything).Return(done, nil).Once()
	s.gateway.On("FetchVideoArtifact", mock.Anything, "https://files/"+name).Return(artifact, nil).Once()
}

func (s *CoordinatorTestSuite) TestVideo_Success() {
	// Arrange
	s.withIngredients()
	r := s.generate("Ramen", testutils.SampleImageURL)
	_, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)
	s.expectVideo("Ramen", 3, testutils.Artifact([]byte("mp4-bytes")))

	// Act
	started, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	s.coordinator.Wait()

	// Assert
	assert.True(s.T(), started.IsVideoGenerating)
	state := s.coordinator.State()
	url := "/media/videos/" + r.ID.String() + ".mp4"
	assert.Equal(s.T(), url, state.ActiveRecipe.VideoURL)
	assert.False(s.T(), state.ActiveRecipe.IsVideoGenerating)
	assert.Equal(s.T(), url, state.SavedRecipes[0].VideoURL, "the saved entry follows")
	assert.False(s.T(), state.SavedRecipes[0].IsVideoGenerating)
	assert.Empty(s.T(), state.VideoJobs)
	assert.True(s.T(), state.VideoViewer.Open)
	assert.Equal(s.T(), url, state.VideoViewer.URL)

	body, ok := s.media.Object("videos/" + r.ID.String() + ".mp4")
	require.True(s.T(), ok)
	assert.Equal(s.T(), []byte("mp4-bytes"), body)

	assert.Equal(s.T(), int32(3), s.waits.Load())
	assert.Equal(s.T(), int64(studio.DefaultPollInterval), s.interval.Load())
	assert.Equal(s.T(), []string{"success"}, s.recorder.videoOutcomes)
	assert.Equal(s.T(), 3, s.recorder.videoPolls)
}

func (s *CoordinatorTestSuite) TestVideo_Preconditions() {
	s.Run("NoActiveRecipe", func() {
		_, err := s.coordinator.GenerateVideo(s.ctx)
		assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(err))
	})

	s.Run("NoImage", func() {
		s.withIngredients()
		s.generate("Imageless", "")

		_, err := s.coordinator.GenerateVideo(s.ctx)

		assert.Equal(s.T(), apperrors.CodeConflict, apperrors.GetCode(err))
		assert.ErrorIs(s.T(), err, recipe.ErrImageRequired)
	})

	s.Run("AlreadyRunning", func() {
		s.generate("Busy", testutils.SampleImageURL)
		reached := make(chan struct{}, 1)
		s.waiter = func(ctx context.Context, _ time.Duration) error {
			reached <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		}
		s.gateway.On("InitiateVideo", mock.Anything, mock.Anything).
			Return(&outbound.VideoOperation{Name: "operations/busy"}, nil).Once()

		started, err := s.coordinator.GenerateVideo(s.ctx)
		require.NoError(s.T(), err)
		<-reached
		_, again := s.coordinator.GenerateVideo(s.ctx)

		assert.Equal(s.T(), apperrors.CodeConflict, apperrors.GetCode(again))
		assert.Equal(s.T(), []uuid.UUID{started.ID}, s.coordinator.State().VideoJobs)

		assert.True(s.T(), s.coordinator.CancelVideo(s.ctx, started.ID))
		s.coordinator.Wait()
		assert.False(s.T(), s.coordinator.CancelVideo(s.ctx, started.ID), "nothing left to cancel")
	})
}

func (s *CoordinatorTestSuite) TestVideo_PollsUntilDone() {
	// Arrange
	const rounds = 25
	s.withIngredients()
	s.generate("Braise", testutils.SampleImageURL)
	op := &outbound.VideoOperation{Name: "operations/braise"}
	s.gateway.On("InitiateVideo", mock.Anything, mock.Anything).Return(op, nil).Once()
	s.gateway.On("PollVideo", mock.Anything, mock.Anything).Return(op, nil).Times(rounds)

	reached := make(chan struct{}, 1)
	s.waiter = func(ctx context.Context, _ time.Duration) error {
		if s.waits.Load() <= rounds {
			return nil
		}
		reached <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}

	// Act
	started, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		s.FailNow("video job stopped polling early")
	}
	stillGenerating := s.coordinator.State().ActiveRecipe.IsVideoGenerating
	s.gateway.AssertNumberOfCalls(s.T(), "PollVideo", rounds)

	s.coordinator.CancelVideo(s.ctx, started.ID)
	s.coordinator.Wait()

	// Assert
	assert.True(s.T(), stillGenerating)
	assert.Equal(s.T(), int64(10*time.Second), s.interval.Load())
	state := s.coordinator.State()
	assert.False(s.T(), state.ActiveRecipe.IsVideoGenerating)
	assert.Empty(s.T(), state.ActiveRecipe.VideoURL)
	assert.Equal(s.T(), msgVideoCancelled, state.VideoError)
	assert.Equal(s.T(), []string{"cancelled"}, s.recorder.videoOutcomes)
}

func (s *CoordinatorTestSuite) TestVideo_MissingArtifact() {
	// Arrange
	s.withIngredients()
	s.generate("Empty Dish", testutils.SampleImageURL)
	s.expectVideo("Empty Dish", 1, &outbound.Artifact{})

	// Act
	_, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	s.coordinator.Wait()

	// Assert
	state := s.coordinator.State()
	assert.False(s.T(), state.ActiveRecipe.IsVideoGenerating)
	assert.Empty(s.T(), state.ActiveRecipe.VideoURL)
	assert.Equal(s.T(), msgVideo, state.VideoError)
	assert.Equal(s.T(), []string{"failure"}, s.recorder.videoOutcomes)

	failures := s.logs.FilterMessage("Video generation failed").All()
	require.Len(s.T(), failures, 1)
	assert.Contains(s.T(), failures[0].ContextMap()["error"], string(apperrors.CodeArtifactMissing))
}

func (s *CoordinatorTestSuite) TestVideo_DoneWithoutLink() {
	// Arrange
	s.withIngredients()
	s.generate("No Link", testutils.SampleImageURL)
	s.gateway.On("InitiateVideo", mock.Anything, mock.Anything).
		Return(&outbound.VideoOperation{Name: "operations/nolink", Done: true}, nil).Once()

	// Act
	_, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	s.coordinator.Wait()

	// Assert
	state := s.coordinator.State()
	assert.False(s.T(), state.ActiveRecipe.IsVideoGenerating)
	assert.Empty(s.T(), state.ActiveRecipe.VideoURL)
	assert.NoError(s.T(), state.ActiveRecipe.CanGenerateVideo(), "a failed job can be retried")
	s.gateway.AssertNotCalled(s.T(), "FetchVideoArtifact", mock.Anything, mock.Anything)
}

func (s *CoordinatorTestSuite) TestVideo_ProviderReportsError() {
	// Arrange
	s.withIngredients()
	s.generate("Blocked", testutils.SampleImageURL)
	s.gateway.On("InitiateVideo", mock.Anything, mock.Anything).Return(&outbound.VideoOperation{
		Name:  "operations/blocked",
		Done:  true,
		Error: &outbound.OperationError{Code: 3, Message: "prompt rejected"},
	}, nil).Once()

	// Act
	_, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	s.coordinator.Wait()

	// Assert
	assert.Equal(s.T(), msgVideo, s.coordinator.State().VideoError)
	assert.Equal(s.T(), []string{"failure"}, s.recorder.videoOutcomes)
}

func (s *CoordinatorTestSuite) TestVideo_DeletingDisplayedRecipeCancelsJob() {
	// Arrange
	s.withIngredients()
	s.generate("Gone", testutils.SampleImageURL)
	_, err := s.coordinator.Save(s.ctx)
	require.NoError(s.T(), err)
	reached := make(chan struct{}, 1)
	s.waiter = func(ctx context.Context, _ time.Duration) error {
		reached <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	s.gateway.On("InitiateVideo", mock.Anything, mock.Anything).
		Return(&outbound.VideoOperation{Name: "operations/gone"}, nil).Once()

	_, err = s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	<-reached

	// Act
	require.NoError(s.T(), s.coordinator.Delete(s.ctx, "Gone"))
	s.coordinator.Wait()

	// Assert
	state := s.coordinator.State()
	assert.Nil(s.T(), state.ActiveRecipe)
	assert.Empty(s.T(), state.SavedRecipes)
	assert.Empty(s.T(), state.VideoJobs)
	assert.Equal(s.T(), []string{"cancelled"}, s.recorder.videoOutcomes)
}

func (s *CoordinatorTestSuite) TestVideo_StorageFailure() {
	// Arrange
	s.withIngredients()
	s.generate("Disk Full", testutils.SampleImageURL)
	s.media.PutErr = errors.New("no space left on device")
	s.expectVideo("Disk Full", 1, testutils.Artifact([]byte("mp4")))

	// Act
	_, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	s.coordinator.Wait()

	// Assert
	state := s.coordinator.State()
	assert.False(s.T(), state.ActiveRecipe.IsVideoGenerating)
	assert.Equal(s.T(), msgVideo, state.VideoError)
}

func (s *CoordinatorTestSuite) TestClose_CancelsJobs() {
	// Arrange
	s.withIngredients()
	s.generate("Shutdown", testutils.SampleImageURL)
	reached := make(chan struct{}, 1)
	s.waiter = func(ctx context.Context, _ time.Duration) error {
		reached <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	s.gateway.On("InitiateVideo", mock.Anything, mock.Anything).
		Return(&outbound.VideoOperation{Name: "operations/shutdown"}, nil).Once()
	_, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	<-reached

	// Act
	require.NoError(s.T(), s.coordinator.Close())

	// Assert
	var stored recipe.Recipe
	require.True(s.T(), s.persisted(studio.KeyCurrentRecipe, &stored))
	assert.False(s.T(), stored.IsVideoGenerating, "the cancelled job is written back")
	_, err = s.coordinator.GenerateVideo(s.ctx)
	assert.Equal(s.T(), apperrors.CodeServiceUnavailable, apperrors.GetCode(err))
}

func (s *CoordinatorTestSuite) TestVideoViewer() {
	// Arrange
	s.withIngredients()
	s.generate("Film", testutils.SampleImageURL)
	s.expectVideo("Film", 1, testutils.Artifact([]byte("mp4")))
	_, err := s.coordinator.GenerateVideo(s.ctx)
	require.NoError(s.T(), err)
	s.coordinator.Wait()
	s.coordinator.CloseVideoViewer(s.ctx)

	// Act
	viewer, err := s.coordinator.OpenVideoViewer(s.ctx, "Film")
	_, missing := s.coordinator.OpenVideoViewer(s.ctx, "Unknown")

	// Assert
	require.NoError(s.T(), err)
	assert.True(s.T(), viewer.Open)
	assert.Equal(s.T(), "Film", viewer.RecipeName)
	assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(missing))

	s.coordinator.CloseVideoViewer(s.ctx)
	assert.False(s.T(), s.coordinator.State().VideoViewer.Open)
}

func (s *CoordinatorTestSuite) TestVideoViewer_RequiresVideo() {
	s.withIngredients()
	s.generate("Still", testutils.SampleImageURL)

	_, err := s.coordinator.OpenVideoViewer(s.ctx, "")

	assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(err))
}

func (s *CoordinatorTestSuite) TestSocialPost() {
	// Arrange
	form := s.factory.Form()
	form.Language = recipe.LanguageFrench
	_, err := s.coordinator.UpdateForm(s.ctx, form)
	require.NoError(s.T(), err)
	s.generate("Ratatouille", testutils.SampleImageURL)
	s.gateway.On("CreateSocialPost", mock.Anything, mock.MatchedBy(func(req outbound.SocialPostRequest) bool {
		return req.Recipe.Name == "Ratatouille" && req.Language == recipe.LanguageFrench
	})).Return("Miam !", nil).Once()
	s.gateway.On("CreateSocialPost", mock.Anything, mock.MatchedBy(func(req outbound.SocialPostRequest) bool {
		return req.Language == recipe.LanguageSpanish
	})).Return("", apperrors.NewSchemaError("bad")).Once()

	// Act
	post, err := s.coordinator.GenerateSocialPost(s.ctx, "Ratatouille", "")
	_, failed := s.coordinator.GenerateSocialPost(s.ctx, "", "es-MX")
	_, unknown := s.coordinator.GenerateSocialPost(s.ctx, "Nope", "")
	_, badLang := s.coordinator.GenerateSocialPost(s.ctx, "", "not a tag")

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Miam !", post)
	assert.Equal(s.T(), apperrors.CodeSchema, apperrors.GetCode(failed))
	assert.Equal(s.T(), "No pudimos crear una publicación para redes sociales. Inténtalo de nuevo.", apperrors.MessageOf(failed))
	assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(unknown))
	assert.Equal(s.T(), apperrors.CodeValidationFailed, apperrors.GetCode(badLang))
}

func (s *CoordinatorTestSuite) TestSocialPost_EmptyLanguageUsesForm() {
	// Arrange
	form := s.factory.Form()
	form.Language = recipe.LanguageSpanish
	_, err := s.coordinator.UpdateForm(s.ctx, form)
	require.NoError(s.T(), err)
	s.generate("Tortilla", testutils.SampleImageURL)
	s.gateway.On("CreateSocialPost", mock.Anything, mock.MatchedBy(func(req outbound.SocialPostRequest) bool {
		return req.Language == recipe.LanguageSpanish
	})).Return("¡Qué rica!", nil).Once()

	// Act
	post, err := s.coordinator.GenerateSocialPost(s.ctx, "", "")

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "¡Qué rica!", post)
}

func (s *CoordinatorTestSuite) TestShareByEmail() {
	// Arrange
	form := s.factory.Form()
	form.Language = recipe.LanguageSpanish
	_, err := s.coordinator.UpdateForm(s.ctx, form)
	require.NoError(s.T(), err)
	_, none := s.coordinator.ShareByEmail(s.ctx)
	s.generate("Gazpacho", testutils.SampleImageURL)

	// Act
	email, err := s.coordinator.ShareByEmail(s.ctx)

	// Assert
	assert.Equal(s.T(), apperrors.CodeNotFound, apperrors.GetCode(none))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Receta: Gazpacho", email.Subject)
	assert.Contains(s.T(), email.Body, "--- Ingredientes ---")
	assert.Contains(s.T(), email.ComposeURL, "to=chef%40example.com")
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func TestCoordinator_StorageFailuresAreSwallowed(t *testing.T) {
	// Arrange
	kv := &testutils.MockKeyValueStore{}
	diskErr := errors.New("disk unavailable")
	kv.On("Get", mock.Anything, mock.Anything).Return(nil, diskErr)
	kv.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(diskErr)
	kv.On("Delete", mock.Anything, mock.Anything).Return(diskErr)

	gateway := testutils.NewMockGateway()
	factory := testutils.NewRecipeFactory(11)
	generated := factory.Named("Resilient Soup")
	gateway.On("CreateRecipe", mock.Anything, mock.Anything).Return(&generated, nil).Once()
	gateway.On("CreateImage", mock.Anything, mock.Anything).Return(testutils.SampleImageURL, nil).Once()

	recorder := &countingRecorder{}
	c := studio.NewCoordinator(gateway, kv, testutils.NewMemoryMediaStore(), studio.Config{}, zap.NewNop(),
		studio.WithRecorder(recorder))
	defer c.Close()

	// Act
	loadErr := c.Load(context.Background())
	_, formErr := c.UpdateForm(context.Background(), factory.Form())
	r, genErr := c.Generate(context.Background(), nil)
	c.Wait()

	// Assert
	require.NoError(t, loadErr)
	require.NoError(t, formErr)
	require.NoError(t, genErr)
	assert.Equal(t, "Resilient Soup", r.Name)
	assert.Equal(t, testutils.SampleImageURL, c.State().ActiveRecipe.ImageURL)
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Contains(t, recorder.storageFailed, "load form")
	assert.Contains(t, recorder.storageFailed, "save current recipe")
	gateway.AssertExpectations(t)
}

func TestCoordinator_KeyPrefix(t *testing.T) {
	kv := memory.NewStore()
	c := studio.NewCoordinator(testutils.NewMockGateway(), kv, testutils.NewMemoryMediaStore(),
		studio.Config{KeyPrefix: "alice:"}, zap.NewNop())
	defer c.Close()

	_, err := c.UpdateForm(context.Background(), recipe.DefaultForm())
	require.NoError(t, err)

	_, err = kv.Get(context.Background(), "alice:"+studio.KeyFormState)
	assert.NoError(t, err)
	_, err = kv.Get(context.Background(), studio.KeyFormState)
	assert.ErrorIs(t, err, outbound.ErrKeyNotFound)
}
