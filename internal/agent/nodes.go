package agent

import (
	"context"
	"fmt"
	"strings"

	"coursepilot/backend/internal/llm"
	"coursepilot/backend/internal/retrieval"
)

// Node names. Start and End are implicit; the filter node doubles as the
// graph's single decision point.
const (
	NodeInitialFilter = "InitialFilter"
	NodeExtractQuery  = "ExtractQuery"
	NodeRetrieve      = "Retrieve"
	NodeSynthesize    = "Synthesize"
)

// Retriever is the vector retrieval client as the graph sees it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Course, error)
}

// Nodes holds the prompted transforms and the retrieval client behind the
// graph's steps. All clients are injected; nothing is constructed at
// package scope.
type Nodes struct {
	filter     *llm.StructuredCall[FilterResult]
	extract    *llm.StructuredCall[ExtractionResult]
	courseList *llm.StructuredCall[CourseListResult]
	answer     *llm.StructuredCall[AnswerResult]

	// retriever may be nil, in which case the Retrieve node falls back to
	// model-synthesized course lists.
	retriever Retriever

	institution string
}

func NewNodes(gen llm.Generator, retriever Retriever, institution string) (*Nodes, error) {
	filter, err := llm.NewStructuredCall[FilterResult](gen, "initial-filter", filterPrompt, nil)
	if err != nil {
		return nil, err
	}

	extract, err := llm.NewStructuredCall(gen, "query-extraction", extractionSystemPrompt, func(r ExtractionResult) error {
		if strings.TrimSpace(r.ExtractedQuery) == "" {
			return fmt.Errorf("extracted_query is empty")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	courseList, err := llm.NewStructuredCall(gen, "course-synthesis", courseListPrompt, func(r CourseListResult) error {
		if len(r.Courses) < 3 || len(r.Courses) > 5 {
			return fmt.Errorf("expected 3 to 5 courses, got %d", len(r.Courses))
		}
		for _, c := range r.Courses {
			if c.RelevanceScore < 0 || c.RelevanceScore > 1 {
				return fmt.Errorf("relevanceScore %f out of range for %s", c.RelevanceScore, c.CourseCode)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	answer, err := llm.NewStructuredCall(gen, "answer-synthesis", answerPrompt, func(r AnswerResult) error {
		if strings.TrimSpace(r.Answer) == "" {
			return fmt.Errorf("answer is empty")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Nodes{
		filter:      filter,
		extract:     extract,
		courseList:  courseList,
		answer:      answer,
		retriever:   retriever,
		institution: institution,
	}, nil
}

// InitialFilterNode decides whether the message is worth processing. The
// decision lands in the patch; the conditional edge reads it back.
func (n *Nodes) InitialFilterNode(ctx context.Context, state State) (Patch, error) {
	result, err := n.filter.Invoke(ctx, map[string]string{
		"institution": n.institution,
		"userMessage": state.RawUserChat,
	})
	if err != nil {
		return Patch{}, err
	}

	patch := Patch{Reason: ptr(result.Reason)}
	if !result.Acceptable {
		patch.Outcome = ptr(OutcomeRejected)
	}
	return patch, nil
}

func (n *Nodes) ExtractQueryNode(ctx context.Context, state State) (Patch, error) {
	result, err := n.extract.Invoke(ctx, map[string]string{
		"examples":    renderExamples(extractionExamples),
		"userMessage": state.RawUserChat,
	})
	if err != nil {
		return Patch{}, err
	}
	return Patch{SemanticSearchQuery: ptr(result.ExtractedQuery)}, nil
}

// RetrieveNode queries the vector store with the extracted query, falling
// back to the raw message when extraction produced nothing. Without a
// store it asks the model to synthesize a plausible course list instead.
func (n *Nodes) RetrieveNode(ctx context.Context, state State) (Patch, error) {
	if n.retriever == nil {
		return n.synthesizeCourses(ctx, state)
	}

	query := state.SemanticSearchQuery
	if query == "" {
		query = state.RawUserChat
	}

	courses, err := n.retriever.Retrieve(ctx, query)
	if err != nil {
		return Patch{}, err
	}
	if courses == nil {
		courses = []retrieval.Course{}
	}
	return Patch{RetrievedCourses: ptr(courses)}, nil
}

func (n *Nodes) synthesizeCourses(ctx context.Context, state State) (Patch, error) {
	result, err := n.courseList.Invoke(ctx, map[string]string{
		"institution": n.institution,
		"userMessage": state.RawUserChat,
	})
	if err != nil {
		return Patch{}, err
	}

	courses := make([]retrieval.Course, 0, len(result.Courses))
	for _, c := range result.Courses {
		courses = append(courses, retrieval.Course{
			Code:        c.CourseCode,
			Name:        c.CourseName,
			Description: c.CourseDescription,
			Score:       c.RelevanceScore,
		})
	}
	return Patch{RetrievedCourses: ptr(courses)}, nil
}

func (n *Nodes) SynthesizeNode(ctx context.Context, state State) (Patch, error) {
	result, err := n.answer.Invoke(ctx, map[string]string{
		"context":  buildContext(state.RetrievedCourses),
		"question": state.RawUserChat,
	})
	if err != nil {
		return Patch{}, err
	}
	return Patch{
		Answer:  ptr(result.Answer),
		Outcome: ptr(OutcomeAnswered),
	}, nil
}

func buildContext(courses []retrieval.Course) string {
	parts := make([]string, 0, len(courses))
	for _, c := range courses {
		parts = append(parts, fmt.Sprintf("%s %s: %s", c.Code, c.Name, c.Description))
	}
	return strings.Join(parts, "\n\n - -\n\n")
}

// Edge labels off the filter node.
const (
	edgeAccepted = "accepted"
	edgeRejected = "rejected"
)

// New compiles the pipeline graph: a linear chain with a single upfront
// gate. Each node executes at most once per invocation.
func New(nodes *Nodes) (*Graph, error) {
	g := NewGraph()

	g.AddNode(NodeInitialFilter, nodes.InitialFilterNode)
	g.AddNode(NodeExtractQuery, nodes.ExtractQueryNode)
	g.AddNode(NodeRetrieve, nodes.RetrieveNode)
	g.AddNode(NodeSynthesize, nodes.SynthesizeNode)

	g.SetEntryPoint(NodeInitialFilter)

	g.AddConditionalEdges(NodeInitialFilter,
		func(ctx context.Context, state State) string {
			if state.Outcome == OutcomeRejected {
				return edgeRejected
			}
			return edgeAccepted
		},
		map[string]string{
			edgeAccepted: NodeExtractQuery,
			edgeRejected: End,
		},
	)

	g.AddEdge(NodeExtractQuery, NodeRetrieve)
	g.AddEdge(NodeRetrieve, NodeSynthesize)
	g.AddEdge(NodeSynthesize, End)

	return g.Compile()
}
