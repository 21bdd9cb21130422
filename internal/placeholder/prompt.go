package placeholder

import (
	"github.com/KaramelBytes/llmclean-cli/internal/analysis"
)

const instructions = `## Task:
Analyze these columns and their unique value counts. Each column has:
- 'numeric_examples': A sample of the normal numeric values in the column (may be empty for purely categorical columns)
- 'non_numeric_values': All non-numeric values found in the column

Identify ONLY placeholder strings that represent missing data or invalid measurements.

## Rules for Identification:
Examples of what to include:
- Missing data indicators (e.g., 'N/A', 'missing', 'nan', 'M_OTHER')
- Invalid measurement markers (e.g., 'BLOD', '-')
- Unknown/undefined values (e.g., 'Unknown', 'not_answered')

Examples of what to exclude:
- Valid categorical values (e.g., 'Male'/'Female')
- Normal numeric values

## Special Considerations
1. Numeric columns: If a column has numeric values, then most non-numeric values in the column are likely placeholders
2. Categorical columns: Consider all categorical values and decide if they are valid or placeholders for the column values
   - Focus on common missing data patterns
   - Consider the column name and context

## Output Format
Return ONLY a JSON array of strings containing the identified placeholder values, for example ["N/A", "-"].
Copy each value exactly as it appears in the counts. Include case variations if present.
Return [] if there are none. Do not add any other text.`

// BuildPrompt embeds the serialized summaries after the fixed instruction block.
func BuildPrompt(s analysis.Summaries) (string, error) {
	counts, err := s.JSON()
	if err != nil {
		return "", err
	}
	return instructions + "\n\nColumn value counts:\n" + counts, nil
}
