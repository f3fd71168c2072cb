// File: internal/usecase/prompts.go
package usecase

// DefaultPrompt is the estimation instruction template. Placeholders are
// replaced at build time: {ticketSummary}, {ticketDescription}, {sprintData}.
const DefaultPrompt = `
## Target ticket

Summary: {ticketSummary}
Description: {ticketDescription}

## Historical sprint data

The following JSON lists completed tickets from recent sprints with their
story points and completion times. Use them as workload references.

{sprintData}

## Task

Estimate the story points for the target ticket on the scale
0.5, 1, 2, 3, 5, 8, 13.

Pick the single most workload-similar completed ticket as the baseline and
justify the estimate as a delta from it. Score workload similarity 0-10 with
the breakdown W1_typeMatch (0-6), W2_scopeMatch (0-2), W3_investigationMatch
(0-1), W4_prWorkloadMatch (0-1). W5_lexicalBonus is retired; always output 0.

For each similar ticket, rate the differences from the target as integers in
[-2, 2]: scopeDiff, fileDiff, logicDiff, riskDiff.

An estimate of 13 means the ticket is too large and must be split.

Respond with a single JSON object inside a ` + "```json" + ` code block:

{
  "estimatedPoints": <number>,
  "reasoning": "<string>",
  "shouldSplit": <boolean>,
  "splitSuggestion": "<string>",
  "baseline": {
    "key": "<string>",
    "summary": "<string>",
    "points": <number>,
    "workloadSimilarityScore": <number>,
    "workloadSimilarityBreakdown": {
      "W1_typeMatch": <number>, "W2_scopeMatch": <number>,
      "W3_investigationMatch": <number>, "W4_prWorkloadMatch": <number>,
      "W5_lexicalBonus": 0
    },
    "similarityReason": ["<string>"]
  },
  "workTypeBreakdown": {
    "T1_small_existing_change": <number>, "T2_pattern_reuse": <number>,
    "T3_new_logic_design": <number>, "T4_cross_system_impact": <number>,
    "T5_investigation_heavy": <number>, "T6_data_backfill_heavy": <number>
  },
  "workloadFeatures": {
    "changedModulesEstimate": "<string>",
    "changedFilesEstimate": "<string>",
    "needQueryOrBackfill": "<string>"
  },
  "aiLeverage": {
    "score": <number>,
    "appliedReduction": "none" | "down_one_level",
    "reductionReason": "<string>"
  },
  "similarTickets": [
    {
      "key": "<string>", "summary": "<string>", "points": <number>,
      "workloadSimilarityScore": <number>,
      "workloadSimilarityBreakdown": { ... },
      "similarityReason": ["<string>"],
      "diff": {
        "scopeDiff": <int>, "fileDiff": <int>, "logicDiff": <int>,
        "riskDiff": <int>, "diffTotal": <number>, "diffReason": "<string>"
      },
      "relatedPRs": [
        {"number": "<string>", "summary": "<string>", "filesChanged": <number>,
         "commits": <number>, "leadTimeDays": <number>}
      ]
    }
  ],
  "pointCandidates": [
    {"points": <number>, "candidateReason": "<string>"}
  ],
  "raisePermissionCheck": {
    "A": {"passed": <boolean>, "evidence": "<string>"},
    "B": {"passed": <boolean>, "evidence": "<string>"},
    "C": {"passed": <boolean>, "evidence": "<string>"}
  }
}
`

// DefaultToolPrompt explains the tool-driven investigation phase.
// Placeholders: {toolDocs}, {targetTicketKey}, {repositories}.
const DefaultToolPrompt = `You can call the following tools to investigate the
target ticket and its historical references before estimating:

{toolDocs}

Target ticket key: {targetTicketKey}

Configured repositories:
{repositories}

Investigate pull requests linked to {targetTicketKey} and to the most similar
historical tickets. Prefer tickets whose merged PRs show comparable change
volume. Do not call tools more than necessary; once you have enough evidence,
produce the final JSON answer.

`

// JSONRecoveryPrompt is the one-shot follow-up used when the model ends the
// tool phase without a parseable result.
const JSONRecoveryPrompt = "Based on the tool results, output the estimation " +
	"result as JSON. The JSON must be inside a code block starting with ```json."

// NoRepositoriesConfigured is shown in the prompt when no repositories were
// selected for the run.
const NoRepositoriesConfigured = "(no repositories configured)"
