// Package handlers provides the five domain handlers (tools) that the
// router and specialists dispatch to. Each handler is stateless per call:
// it derives parameters from the utterance lexically, reads the fields of
// the session context it declares, and applies its delta through the
// context's mutation methods.
package handlers

import "github.com/BTreeMap/WellnessPipe/internal/models"

// mealCatalog is the candidate recipe set the meal planner draws from.
// Dietary filters are applied as a post-filter over this set; the planner
// never generates a recipe outside the filtered candidates.
var mealCatalog = []models.Recipe{
	// Breakfast
	{Name: "Oatmeal with fruits", Slot: models.SlotBreakfast, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan}, Ingredients: []string{"oats", "fruit"}, Calories: 300},
	{Name: "Greek yogurt with granola", Slot: models.SlotBreakfast, Diets: []models.DietTag{models.DietVegetarian}, Ingredients: []string{"yogurt", "granola"}, Calories: 250},
	{Name: "Avocado toast", Slot: models.SlotBreakfast, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan}, Ingredients: []string{"avocado", "bread"}, Calories: 350},
	{Name: "Tofu scramble", Slot: models.SlotBreakfast, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"tofu"}, Calories: 280},
	{Name: "Cheese omelet", Slot: models.SlotBreakfast, Diets: []models.DietTag{models.DietVegetarian, models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"eggs", "cheese"}, Calories: 400},
	{Name: "Bacon and eggs", Slot: models.SlotBreakfast, Diets: []models.DietTag{models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"bacon", "eggs"}, Calories: 450},
	{Name: "Chia pudding", Slot: models.SlotBreakfast, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"chia", "coconut milk"}, Calories: 260},

	// Lunch
	{Name: "Quinoa salad", Slot: models.SlotLunch, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"quinoa", "vegetables"}, Calories: 380},
	{Name: "Lentil soup", Slot: models.SlotLunch, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"lentils"}, Calories: 230},
	{Name: "Chicken salad", Slot: models.SlotLunch, Diets: []models.DietTag{models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"chicken", "greens"}, Calories: 450},
	{Name: "Vegetable wrap", Slot: models.SlotLunch, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan}, Ingredients: []string{"tortilla", "vegetables"}, Calories: 290},
	{Name: "Tuna salad", Slot: models.SlotLunch, Diets: []models.DietTag{models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"tuna", "greens"}, Calories: 350},
	{Name: "Buddha bowl", Slot: models.SlotLunch, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"rice", "chickpeas", "vegetables"}, Calories: 420},
	{Name: "Caprese sandwich", Slot: models.SlotLunch, Diets: []models.DietTag{models.DietVegetarian}, Ingredients: []string{"bread", "mozzarella", "tomato"}, Calories: 410},

	// Dinner
	{Name: "Vegetable stir-fry", Slot: models.SlotDinner, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"vegetables", "soy sauce"}, Calories: 320},
	{Name: "Grilled salmon", Slot: models.SlotDinner, Diets: []models.DietTag{models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"salmon"}, Calories: 400},
	{Name: "Tofu stir-fry", Slot: models.SlotDinner, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"tofu", "vegetables"}, Calories: 320},
	{Name: "Pasta primavera", Slot: models.SlotDinner, Diets: []models.DietTag{models.DietVegetarian}, Ingredients: []string{"pasta", "vegetables"}, Calories: 480},
	{Name: "Steak with vegetables", Slot: models.SlotDinner, Diets: []models.DietTag{models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"beef", "vegetables"}, Calories: 550},
	{Name: "Bean curry", Slot: models.SlotDinner, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"beans", "curry"}, Calories: 390},
	{Name: "Stuffed bell peppers", Slot: models.SlotDinner, Diets: []models.DietTag{models.DietVegetarian, models.DietGlutenFree}, Ingredients: []string{"peppers", "rice", "cheese"}, Calories: 360},

	// Snacks
	{Name: "Mixed nuts", Slot: models.SlotSnack, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"nuts"}, Calories: 200},
	{Name: "Fruit bowl", Slot: models.SlotSnack, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"fruit"}, Calories: 120},
	{Name: "Hummus with veggies", Slot: models.SlotSnack, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"chickpeas", "vegetables"}, Calories: 180},
	{Name: "Hard-boiled eggs", Slot: models.SlotSnack, Diets: []models.DietTag{models.DietVegetarian, models.DietKeto, models.DietGlutenFree}, Ingredients: []string{"eggs"}, Calories: 140},
	{Name: "Roasted chickpeas", Slot: models.SlotSnack, Diets: []models.DietTag{models.DietVegetarian, models.DietVegan, models.DietGlutenFree}, Ingredients: []string{"chickpeas"}, Calories: 160},
}

// workoutTemplate is one goal-and-level specific workout prescription.
type workoutTemplate struct {
	exercises    []string
	muscleGroups []string
	minutes      int
	sessions     int // sessions per week
}

// workoutTemplates maps goal type and experience level to a prescription.
// Weight-gain goals share the muscle-building templates.
var workoutTemplates = map[models.GoalType]map[models.Difficulty]workoutTemplate{
	models.GoalLoseWeight: {
		models.DifficultyBeginner:     {exercises: []string{"Walking", "Bodyweight squats", "Push-ups", "Planks"}, muscleGroups: []string{"legs", "core"}, minutes: 30, sessions: 3},
		models.DifficultyIntermediate: {exercises: []string{"Jogging", "Burpees", "Mountain climbers", "Jump squats"}, muscleGroups: []string{"legs", "core", "full body"}, minutes: 45, sessions: 4},
		models.DifficultyAdvanced:     {exercises: []string{"HIIT sprints", "Burpees", "Plyometric circuits", "Rowing intervals"}, muscleGroups: []string{"full body"}, minutes: 50, sessions: 5},
	},
	models.GoalBuildMuscle: {
		models.DifficultyBeginner:     {exercises: []string{"Push-ups", "Squats", "Lunges", "Dumbbell rows"}, muscleGroups: []string{"chest", "legs", "back"}, minutes: 40, sessions: 3},
		models.DifficultyIntermediate: {exercises: []string{"Bench press", "Deadlifts", "Pull-ups", "Overhead press"}, muscleGroups: []string{"chest", "back", "shoulders"}, minutes: 60, sessions: 4},
		models.DifficultyAdvanced:     {exercises: []string{"Heavy compound lifts", "Weighted pull-ups", "Supersets", "Drop sets"}, muscleGroups: []string{"full body"}, minutes: 75, sessions: 5},
	},
	models.GoalGeneralFitness: {
		models.DifficultyBeginner:     {exercises: []string{"Walking", "Stretching", "Light weights", "Yoga"}, muscleGroups: []string{"full body"}, minutes: 30, sessions: 3},
		models.DifficultyIntermediate: {exercises: []string{"Jogging", "Circuit training", "Moderate weights", "Pilates"}, muscleGroups: []string{"full body"}, minutes: 45, sessions: 4},
		models.DifficultyAdvanced:     {exercises: []string{"Running", "Complex movements", "Heavy weights", "Sport drills"}, muscleGroups: []string{"full body"}, minutes: 60, sessions: 5},
	},
}

// exclusionMap maps a body area to the exercises that must be avoided when
// that area is injured, mirroring the injury support assessments.
var exclusionMap = map[string][]string{
	"knee":     {"Running", "Jogging", "Jump squats", "Bodyweight squats", "Squats", "Lunges", "HIIT sprints", "Plyometric circuits", "Burpees"},
	"back":     {"Deadlifts", "Heavy compound lifts", "Bench press", "Weighted pull-ups", "Rowing intervals", "Supersets", "Drop sets"},
	"shoulder": {"Push-ups", "Overhead press", "Pull-ups", "Bench press", "Weighted pull-ups", "Heavy compound lifts"},
	"ankle":    {"Running", "Jogging", "Jump squats", "HIIT sprints", "Plyometric circuits", "Burpees", "Walking"},
	"foot":     {"Running", "Jogging", "Jump squats", "HIIT sprints", "Plyometric circuits", "Walking"},
	"wrist":    {"Push-ups", "Planks", "Dumbbell rows", "Bench press", "Heavy compound lifts", "Mountain climbers"},
}

// bodyAreas lists the known injury areas in detection order.
var bodyAreas = []string{"knee", "back", "shoulder", "ankle", "foot", "wrist"}

// safeAlternatives are substituted when exclusions would empty a session.
var safeAlternatives = []string{"Swimming", "Stationary bike", "Gentle stretching", "Chair exercises"}
