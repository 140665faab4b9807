// Package prompts composes the requests sent to the generation collaborator.
//
// Every builder is deterministic: the same context yields the same text.
// All prompts end with the same instruction to answer in bare JSON.
package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/schema"
)

const jsonInstructions = `IMPORTANT: Respond exclusively with a valid JSON array or object. Do not use code blocks with ` + "```json or ```" + `. Start your answer directly with [ or { and do not add any additional text.`

// maxListedTasks bounds the task list in lane prompts.
const maxListedTasks = 10

var titleCaser = cases.Title(language.English)

// Title turns a kind such as "sequence_flows" into "Sequence Flows".
func Title(kind ir.Kind) string {
	return titleCaser.String(strings.ReplaceAll(string(kind), "_", " "))
}

func finish(b *strings.Builder) string {
	b.WriteString("\n")
	b.WriteString(jsonInstructions)
	return strings.TrimSpace(b.String())
}

// Phases asks for the main phases of the described process.
func Phases(description string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "As a BPMN expert, define the main phases for a process to manufacture/operate: %q.\n\n", description)
	fmt.Fprintf(&b, "Return an array of %d objects with fields 'phase_id', 'phase_name' and 'description'.\n", n)
	b.WriteString("The phases should form a logical sequence from the first to the last phase of the process.\n\n")
	b.WriteString(`Example:
[
  {"phase_id": "PH_001", "phase_name": "Requirements Analysis", "description": "Capturing and analyzing product requirements"}
]
`)
	return finish(&b)
}

// Entity asks for n records of a kind described by its schema. It serves
// every kind without a dedicated builder, process definitions included.
func Entity(kind ir.Kind, s *schema.Schema, c *ir.Context, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d %s entries for: %q.\n\n", n, Title(kind), c.Description())
	writePhases(&b, c)
	fmt.Fprintf(&b, "Schema definition for %s:\n%s\n\n", kind, schemaFields(s))
	b.WriteString("The data should be realistic and detailed.\n")
	b.WriteString("Return the data as a JSON array where each element is an object conforming to the schema definition.\n")
	return finish(&b)
}

// Elements asks for one batch of BPMN elements. Elements already accepted
// in earlier batches are listed so the new batch continues the process
// instead of repeating it.
func Elements(c *ir.Context, n int) string {
	header := c.Header()
	name := header.String("process_name")
	if name == "" {
		name = header.String("description")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a set of %d BPMN elements for process: %q.\n\n", n, name)
	fmt.Fprintf(&b, "Process ID: %s\n\n", c.ProcessID())
	writePhases(&b, c)

	if existing := c.Records(ir.KindElements); len(existing) > 0 {
		b.WriteString("Elements already defined (do not repeat their ids or names; continue the process from them):\n")
		for _, el := range existing {
			writeElement(&b, el)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Include these kinds of elements to form a complete process flow:
1. Start events: at least one; plain or with a trigger (message, timer).
2. Tasks: user tasks, service tasks and so on, with descriptive names.
3. Gateways: exclusive gateways for decisions, parallel gateways for concurrent work.
4. End events: at least one.

Each element has these fields:
- element_id: a unique id (e.g. "START_001", "TASK_001", "GATE_001", "END_001")
- element_name: descriptive name
- element_type: one of "event", "task", "gateway"
- element_subtype: specific type (e.g. "startEvent", "userTask", "exclusiveGateway")
`)
	fmt.Fprintf(&b, "- process_id: %s\n", c.ProcessID())
	b.WriteString("- description: brief description of the element's purpose\n\n")
	b.WriteString("Return the data as a JSON array with elements in logical process order (start to end).\n")
	return finish(&b)
}

// Flows asks for sequence flows connecting the accepted elements.
func Flows(c *ir.Context, n int) string {
	var b strings.Builder
	b.WriteString("Based on the following BPMN elements, generate the sequence flows that connect them into a complete BPMN process.\n\n")
	b.WriteString("Available elements:\n")
	for _, el := range c.Records(ir.KindElements) {
		writeElement(&b, el)
	}
	fmt.Fprintf(&b, `
Generate about %d sequence flows with the following fields:
- flow_id: a unique id (e.g. "FLOW_001")
- source_ref: id of the element the flow leaves
- target_ref: id of the element the flow enters
- process_id: %s
- condition_expr: optional condition, mainly on flows leaving exclusive gateways

Rules:
1. Every element except start and end events has at least one incoming and one outgoing flow.
2. Start events only have outgoing flows.
3. End events only have incoming flows.
4. Flows leaving exclusive gateways carry conditions; parallel gateways need none.
5. Only reference the element ids listed above.
`, n, c.ProcessID())
	return finish(&b)
}

// Resources asks for people, systems or equipment assigned to tasks.
func Resources(c *ir.Context, s *schema.Schema, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d resources (people, roles, systems or equipment) for the BPMN tasks.\n\n", n)
	tasks := tasksOf(c)
	if len(tasks) == 0 {
		b.WriteString("No tasks found.\n\n")
	} else {
		b.WriteString("Available tasks for resource assignment:\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "- ID: %s, Name: %s\n", t.String("element_id"), t.String("element_name"))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Schema definition for resources:\n%s\n\n", schemaFields(s))
	fmt.Fprintf(&b, "Assign each resource to one task through element_id. Use process_id %s.\n", c.ProcessID())
	b.WriteString("Consider the type of each task when choosing resources.\n")
	return finish(&b)
}

// Pools asks for the participants of the process.
func Pools(c *ir.Context, n int) string {
	header := c.Header()
	name := header.String("process_name")
	if name == "" {
		name = header.String("description")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "As a BPMN expert with organizational design experience, generate %d pools for this BPMN diagram.\n\n", n)
	fmt.Fprintf(&b, "Process: %s\nProcess ID: %s\n", name, c.ProcessID())
	if specs := c.ProductSpecs(); specs != nil && specs.String("product_name") != "" {
		fmt.Fprintf(&b, "Product: %s\n", specs.String("product_name"))
	}

	counts := map[string]int{}
	for _, el := range c.Records(ir.KindElements) {
		counts[el.String("element_type")]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	b.WriteString("\nElements in the process:\n")
	for _, t := range types {
		fmt.Fprintf(&b, "- %s: %d\n", titleCaser.String(t), counts[t])
	}

	fmt.Fprintf(&b, `
Pools represent participants such as organizations, departments or systems.

For each pool, generate:
- pool_id: a unique id ("POOL_001", "POOL_002", ...)
- pool_name: name of the participant
- process_id: %s
- description: the pool's purpose in the process
- participant_type: "organization", "department", "system" or "role"
`, c.ProcessID())
	return finish(&b)
}

// Lanes asks for up to n lanes inside one pool.
func Lanes(pool ir.Record, c *ir.Context, n int) string {
	poolID, poolName := pool.String("pool_id"), pool.String("pool_name")

	var b strings.Builder
	fmt.Fprintf(&b, "As a BPMN expert with organizational design experience, generate up to %d lanes for the following pool:\n\n", n)
	fmt.Fprintf(&b, "Pool ID: %s\nPool Name: %s\nPool Description: %s\nProcess ID: %s\n\n",
		poolID, poolName, pool.String("description"), c.ProcessID())

	if tasks := tasksOf(c); len(tasks) > 0 {
		b.WriteString("Tasks that may be assigned to lanes:\n")
		for i, t := range tasks {
			if i == maxListedTasks {
				fmt.Fprintf(&b, "(and %d more tasks)\n", len(tasks)-maxListedTasks)
				break
			}
			sub := t.String("element_subtype")
			if sub == "" {
				sub = "task"
			}
			fmt.Fprintf(&b, "- %s: %s (%s)\n", t.String("element_id"), t.String("element_name"), sub)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `Lanes subdivide a pool by role, department or system.

For each lane, generate:
- lane_id: a unique id ("LANE_001", "LANE_002", ...)
- lane_name: name of the role or department
- pool_id: %s
- process_id: %s
- description: the lane's responsibilities
- role: the functional role of the lane
- element_refs: optional array of element ids placed in this lane
`, poolID, c.ProcessID())
	return finish(&b)
}

// Integrity asks for an audit of the element and flow graph.
func Integrity(elements, flows []ir.Record) string {
	var b strings.Builder
	b.WriteString("As a BPMN expert, analyze the following BPMN model for logical integrity issues.\n\n")
	if len(elements) == 0 {
		b.WriteString("No elements available.\n\n")
	} else {
		b.WriteString("BPMN Elements:\n")
		for _, el := range elements {
			writeElement(&b, el)
		}
		b.WriteString("\n")
	}
	if len(flows) == 0 {
		b.WriteString("No sequence flows available.\n\n")
	} else {
		b.WriteString("Sequence Flows:\n")
		for _, fl := range flows {
			fmt.Fprintf(&b, "- ID: %s, Source: %s -> Target: %s\n",
				orUnknown(fl.String("flow_id")), orUnknown(fl.String("source_ref")), orUnknown(fl.String("target_ref")))
		}
		b.WriteString("\n")
	}
	b.WriteString(`Check for:
1. Missing start or end events
2. Elements without incoming flows (except start events)
3. Elements without outgoing flows (except end events)
4. Disconnected elements or subgraphs
5. Gateway splits without matching joins
6. Potential deadlocks or infinite loops
7. Flows connecting incompatible elements
8. Excessive branching or merging

Return a JSON array of issues. Each issue has:
- "problem_type": short label of the issue type
- "description": detailed description
- "elements": array of involved element ids
- "severity": "high", "medium" or "low"

If no issues are found, return an empty array [].
`)
	return finish(&b)
}

// ProductSpecs asks for a specification record of the described product.
func ProductSpecs(description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the description %q, provide detailed specifications for this product as a JSON object.\n\n", description)
	b.WriteString(`Include the following fields:
- product_name: a short name for the product
- dimensions: physical dimensions (width, height, depth)
- weight: product weight with unit
- materials: list of primary materials
- component_parts: list of main parts with estimated costs
- total_cost: estimated total manufacturing cost
- retail_price: suggested retail price
- manufacturing_time: estimated time to manufacture one unit
`)
	return finish(&b)
}

// Repair asks the collaborator to fix text that should have been JSON.
func Repair(text string) string {
	return "The following text should be valid JSON but has errors. Fix the errors and return only the corrected JSON:\n\n" + text
}

func schemaFields(s *schema.Schema) string {
	if s == nil || len(s.Fields) == 0 {
		return "not specified"
	}
	lines := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		line := fmt.Sprintf("- %s: %s", f.Name, strings.Join(types, " | "))
		if f.Required {
			line += " (required)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func writePhases(b *strings.Builder, c *ir.Context) {
	phases := c.Records(ir.KindPhases)
	if len(phases) == 0 {
		return
	}
	data, err := json.MarshalIndent(phases, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(b, "The process consists of the following phases:\n%s\n\n", data)
}

func writeElement(b *strings.Builder, el ir.Record) {
	fmt.Fprintf(b, "- ID: %s, Name: %s, Type: %s/%s\n",
		orUnknown(el.String("element_id")), orUnknown(el.String("element_name")),
		orUnknown(el.String("element_type")), orUnknown(el.String("element_subtype")))
}

func tasksOf(c *ir.Context) []ir.Record {
	var out []ir.Record
	for _, el := range c.Records(ir.KindElements) {
		if strings.EqualFold(el.String("element_type"), "task") {
			out = append(out, el)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
