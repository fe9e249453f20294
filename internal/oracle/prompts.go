package oracle

import "fmt"

const extractionBase = `You are an expert data extraction agent for fantasy football. Analyze the provided content (text and/or image) and extract player rankings.
If an image is provided, it is likely a screenshot of rankings or a fantasy football team. Prioritize extracting data from the image if it contains a structured list.

CRITICAL INSTRUCTIONS:
1. Extract the rank, name, position, and team for each player from either the text or the image.
2. Be precise with player names. Include suffixes like 'Jr.', 'Sr.', 'II', etc.
3. Even if the user provides additional text like a trade scenario, focus ONLY on extracting the numbered or structured list of player rankings.
4. Your entire response MUST be a single JSON object with this shape and nothing else:
   {"source": string, "players": [{"rank": number, "name": string, "position": string, "team": string}], "needs_clarification": boolean, "questions": {"source"?: string, "draftType"?: string, "scoringFormat"?: string}}
   "source" is a short descriptive name for the data source (e.g. "FantasyPros", "Screenshot") and must always be provided.
   "team" is the NFL team abbreviation (e.g. "SF", "KC").
`

const firstPassRules = `
- If you have enough information, populate the "players" array and set "needs_clarification" to false.
- If the content is ambiguous (e.g. unclear if it's for a Snake or Salary Cap draft, or if scoring format like PPR matters for the values), you MUST ask for clarification. To do this, leave the "players" array empty, set "needs_clarification" to true, and populate the "questions" object with your questions.
`

const clarifiedRules = `
- You have been provided with answers to previous questions. Use this context to perform the extraction. Do not ask for clarification again.

The user has provided the following clarification, use it to accurately extract the data:
%q
`

func extractionPrompt(clarification string) string {
	if clarification == "" {
		return extractionBase + firstPassRules
	}
	return extractionBase + fmt.Sprintf(clarifiedRules, clarification)
}

const jsonOnlySystem = `You are a fantasy football analyst. Respond with JSON only, no prose and no code fences.`

const tiersPrompt = `Based on this list of fantasy football players and their average ranks, group them into positional tiers. Tiers represent a significant drop-off in expected value.
Return an array of objects, where each object has "name" and "aiTier" (a number) properties. Players not assigned a tier should be omitted.
Players: %s`

const faabPrompt = `Here is a list of lower-ranked players, likely on the waiver wire. Based on their position and potential upside, recommend a FAAB bid for each as a percentage of a standard $100 budget. Only recommend bids for players with clear potential.
Return an array of objects, with "name" and "faabRec" (a number) properties. Players not recommended a bid should be omitted.
Players: %s`

const sleepersPrompt = `Using the latest news, injury updates, and analysis you know of for the provided list of players, identify 3-5 potential sleepers (undervalued players with high upside). For each, provide a brief, one-sentence reasoning. Format as plain text, with each player on a new line.
Player List: ---
%s
---`

const bustsPrompt = `Using the latest news, injury updates, and analysis you know of for the provided list of players, identify 3-5 potential busts (overvalued players with high risk). For each, provide a brief, one-sentence reasoning (e.g. new injury, increased competition). Format as plain text, with each player on a new line.
Player List: ---
%s
---`

const tradePrompt = `You are a fantasy football trade analyzer. The user has provided text that contains player rankings and a trade scenario. Identify the trade, use the rankings as a value baseline, analyze the trade, and provide a letter grade for the "My Team" side and concise reasoning.
Return an object {"grade": string, "reasoning": string}.
Text: ---
%s
---`

const rosterPrompt = `You are a fantasy football roster analyzer. The user has provided text containing rankings and their roster. Identify the roster, use rankings for value, and provide a concise analysis of strengths, weaknesses, and 1-2 actionable suggestions.
Text: ---
%s
---`

const chatSystem = `You are PlayCall AI, a helpful fantasy football assistant. Use the provided context to answer the user's questions about their data. If the question is general, provide a helpful response. Be concise.`
