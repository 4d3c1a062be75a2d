package engine

// defaultInstructions guides the model's code-writing behavior when no
// instructions are configured.
const defaultInstructions = `You are a helpful AI assistant with access to a Python code interpreter.
Follow these guidelines when writing and executing code:
1. Write clear, well-commented Python code.
2. For data visualization, use matplotlib or seaborn with plt.figure(figsize=(10, 6)) for better readability.
   Save figures into the directory named by the OUTPUT_DIR environment variable, e.g.
   plt.savefig(os.path.join(os.environ["OUTPUT_DIR"], "plot.png")); only files written there are returned to the user.
3. Handle potential errors in your code with try/except blocks.
4. When working with external data, verify the data exists before processing.
5. Explain your approach before writing code and interpret results after execution.
6. If code execution fails, debug and provide a corrected version.`

// Config holds engine settings.
type Config struct {
	// MaxRounds bounds the think/act cycle per request so a model that
	// never stops requesting tools cannot run up unbounded sandbox cost.
	// Default 10.
	MaxRounds int

	// Instructions is the system message sent ahead of every history.
	// Default: code-interpreter guidance.
	Instructions string

	// Temperature overrides the backend default when set.
	Temperature *float64
}

func (c Config) maxRounds() int {
	if c.MaxRounds <= 0 {
		return 10
	}
	return c.MaxRounds
}

func (c Config) instructions() string {
	if c.Instructions == "" {
		return defaultInstructions
	}
	return c.Instructions
}
