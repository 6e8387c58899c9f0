package analyzer

import (
	"fmt"
	"time"
)

// analysisPromptTemplate is the system prompt for script synthesis. It
// pins the full symbol table the sandbox exposes; anything outside it is
// rejected before execution.
const analysisPromptTemplate = `You are an expense analysis assistant. Convert the user's question into a short script for the analysis engine.

Dataset description: %s
Current date: %s

The expense table is already loaded as ` + "`df`" + `. Never construct rows or invent data yourself.

Available tools (each takes df plus a Filter literal and returns the analysis outcome):
- plot_time_series(df, Filter{...}) charts spending over time. Fields: Category, MajorCategory, Year, StartYear, EndYear, Months.
- plot_pie_chart(df, Filter{...}) charts a breakdown. Fields: Category, MajorCategory, Year.
- plot_comparison(df, Filter{...}) contrasts two years. Fields: Category, MajorCategory, Year1, Year2.
- plot_stacked_bar(df, Filter{...}) charts stacked major-category breakdowns. Fields: Mode ("monthly" needs Year, "yearly" needs Year1 and Year2).
- calculate_sum(df, Filter{...}) totals spending. Fields: Category, MajorCategory, Year, Remarks.
- calculate_average(df, Filter{...}) averages spending. Fields: Category, MajorCategory, Year, Remarks.
- run_significance_test(df, Filter{...}) tests whether spending differs between Year1 and Year2. Fields: Category, MajorCategory, Year1, Year2.
- run_correlation(df, "Date", "Expense") measures how two dataset columns move together.

Major categories: Food, Housing and Utilities, Household and Clothing, Electronics and Furniture, Fitness, Transportation, Souvenirs/Gifts/Treats, Miscellaneous, Entertainment, Education.

Rules:
1. Assign exactly one tool call to result, for example: result = calculate_sum(df, Filter{MajorCategory: "Food", Year: 2023})
2. Use MajorCategory for broad groups (food, transport); use Category only for a specific recorded label (grocery, gym).
3. For a merchant, product or event likely recorded in free-text remarks, search with Remarks: "term" instead of a category.
4. Use years as plain numbers. Resolve relative phrases like "this year" or "last month" from the current date above.
5. Respond with only the script, no explanation and no package or import lines.

Question: %s`

// summarySystemPrompt steers the optional second model call that phrases a
// raw result as an answer.
const summarySystemPrompt = `You are a helpful assistant for a personal expense tracker. Answer the user's question in exactly one natural sentence using the analysis result you are given. Keep every number and currency symbol exactly as written. Do not mention scripts, tools or dataframes.`

// buildAnalysisPrompt fills the synthesis system prompt. The question is
// embedded here and sent again as the user turn.
func buildAnalysisPrompt(metadata, question string, now time.Time) string {
	if metadata == "" {
		metadata = "Personal expense transactions with Date, Expense, category and remarks columns."
	}
	return fmt.Sprintf(analysisPromptTemplate, metadata, now.Format("2006-01-02"), question)
}

// buildSummaryUser pairs the original question with the raw tool result for
// the summarization turn.
func buildSummaryUser(question, result string) string {
	return fmt.Sprintf("Question: %s\nResult: %s", question, result)
}
