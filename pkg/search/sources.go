package search

import (
	"strconv"
	"strings"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/preview"
)

// Source declares one searchable content type: where its rows live and how
// a matched row becomes a result.
type Source struct {
	// Name identifies the source in logs, metrics, and configuration.
	Name string

	Schema Schema

	// Type returns the result type label for a row.
	Type func(Row) string

	// Title composes the result title for a row.
	Title func(Row) string

	// Link returns the most specific location of a row. When nil, the
	// placement's generic activity URL is used.
	Link func(Row, Placement) api.Link
}

// TypeSeparator joins a content type name and its sub-kind label.
const TypeSeparator = " - "

// ActivityTables lists the activity instance tables covered by the generic
// activities source. Each table has id, course, name, and intro columns.
var ActivityTables = []string{
	"assign", "resource", "forum", "page", "quiz", "workshop", "label",
	"book", "lesson", "wiki", "glossary", "feedback", "data",
}

// ModuleLabels maps activity type names to their display names.
var ModuleLabels = map[string]string{
	"assign":   "Assignment",
	"resource": "File",
	"forum":    "Forum",
	"page":     "Page",
	"quiz":     "Quiz",
	"workshop": "Workshop",
	"label":    "Label",
	"book":     "Book",
	"lesson":   "Lesson",
	"wiki":     "Wiki",
	"glossary": "Glossary",
	"feedback": "Feedback",
	"data":     "Database",
	"url":      "URL",
	"folder":   "Folder",
	"choice":   "Choice",
}

// ModuleLabel returns the display name of an activity type, falling back to
// the capitalized type name for types without a known label.
func ModuleLabel(name string) string {
	if label, ok := ModuleLabels[name]; ok {
		return label
	}
	if name == "" {
		return "Activity"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// TypeLabel composes a result type from an activity type and a sub-kind.
func TypeLabel(module, kind string) string {
	return ModuleLabel(module) + TypeSeparator + kind
}

// WithParent composes "label (parent)", dropping whichever part is blank.
func WithParent(label, parent string) string {
	label = strings.TrimSpace(label)
	parent = strings.TrimSpace(parent)
	switch {
	case parent == "":
		return label
	case label == "":
		return parent
	default:
		return label + " (" + parent + ")"
	}
}

// DefaultSources returns the built-in sources in registration order: the
// generic activities source first, then one source per content type.
func DefaultSources() []Source {
	return []Source{
		activitiesSource(),
		forumSource(),
		bookSource(),
		quizSource(),
		lessonSource(),
		wikiSource(),
		glossarySource(),
		workshopSource(),
		feedbackSource(),
		dataSource(),
	}
}

// placementJoin joins an instance alias to its placement and module row.
func placementJoin(instance string) string {
	return " JOIN course_modules cm ON cm.instance = " + instance + ".id JOIN modules m ON m.id = cm.module"
}

func fixedType(label string) func(Row) string {
	return func(Row) string { return label }
}

func titleWithParent(r Row) string {
	return WithParent(r.Title, r.Parent)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func activitiesSource() Source {
	from := []string{"course_modules cm JOIN modules m ON m.id = cm.module"}
	names := make([]string, 0, len(ActivityTables))
	intros := make([]string, 0, len(ActivityTables))
	for _, t := range ActivityTables {
		alias := "i_" + t
		from = append(from, "LEFT JOIN "+t+" "+alias+" ON m.name = '"+t+"' AND "+alias+".id = cm.instance")
		names = append(names, alias+".name")
		intros = append(intros, alias+".intro")
	}
	name := "COALESCE(" + strings.Join(names, ", ") + ")"
	intro := "COALESCE(" + strings.Join(intros, ", ") + ")"

	return Source{
		Name: "activities",
		Schema: Schema{
			From: strings.Join(from, "\n  "),
			Columns: map[Field]string{
				FieldID:    "cm.id",
				FieldCMID:  "cm.id",
				FieldKind:  "m.name",
				FieldTitle: name,
				FieldBody:  intro,
			},
			Match: []string{name, intro},
			Order: []string{name},
		},
		Type:  func(r Row) string { return ModuleLabel(r.Kind) },
		Title: func(r Row) string { return strings.TrimSpace(r.Title) },
	}
}

func forumSource() Source {
	return Source{
		Name: "forum",
		Schema: Schema{
			Module: "forum",
			From: "forum_posts fp JOIN forum_discussions fd ON fd.id = fp.discussion" +
				" JOIN forum f ON f.id = fd.forum" + placementJoin("f"),
			Columns: map[Field]string{
				FieldID:     "fp.id",
				FieldCMID:   "cm.id",
				FieldTitle:  "fp.subject",
				FieldBody:   "fp.message",
				FieldParent: "f.name",
				FieldRef:    "fd.id",
			},
			Match: []string{"fp.subject", "fp.message"},
			Order: []string{"fp.subject"},
		},
		Type:  fixedType(TypeLabel("forum", "Post")),
		Title: titleWithParent,
		Link: func(r Row, _ Placement) api.Link {
			return api.NewLink("/mod/forum/discuss.php", "d", id(r.Ref))
		},
	}
}

func bookSource() Source {
	return Source{
		Name: "book",
		Schema: Schema{
			Module: "book",
			From:   "book_chapters bc JOIN book b ON b.id = bc.bookid" + placementJoin("b"),
			Columns: map[Field]string{
				FieldID:     "bc.id",
				FieldCMID:   "cm.id",
				FieldTitle:  "bc.title",
				FieldBody:   "bc.content",
				FieldParent: "b.name",
			},
			Match:  []string{"bc.title", "bc.content"},
			Order:  []string{"b.name", "bc.pagenum"},
			Hidden: "bc.hidden = 0",
		},
		Type:  fixedType(TypeLabel("book", "Chapter")),
		Title: titleWithParent,
		Link: func(r Row, p Placement) api.Link {
			return api.NewLink("/mod/book/view.php", "id", id(p.ID), "chapterid", id(r.ID))
		},
	}
}

func quizSource() Source {
	return Source{
		Name: "quiz",
		Schema: Schema{
			Module: "quiz",
			From:   "quiz_feedback qf JOIN quiz q ON q.id = qf.quizid" + placementJoin("q"),
			Columns: map[Field]string{
				FieldID:     "qf.id",
				FieldCMID:   "cm.id",
				FieldBody:   "qf.feedbacktext",
				FieldParent: "q.name",
			},
			Match: []string{"qf.feedbacktext"},
			Order: []string{"q.name"},
		},
		Type:  fixedType(TypeLabel("quiz", "Feedback")),
		Title: func(r Row) string { return WithParent("Feedback", r.Parent) },
	}
}

func lessonSource() Source {
	return Source{
		Name: "lesson",
		Schema: Schema{
			Module: "lesson",
			From:   "lesson_pages lp JOIN lesson l ON l.id = lp.lessonid" + placementJoin("l"),
			Columns: map[Field]string{
				FieldID:     "lp.id",
				FieldCMID:   "cm.id",
				FieldTitle:  "lp.title",
				FieldBody:   "lp.contents",
				FieldParent: "l.name",
			},
			Match: []string{"lp.title", "lp.contents"},
			Order: []string{"l.name", "lp.title"},
		},
		Type:  fixedType(TypeLabel("lesson", "Page")),
		Title: titleWithParent,
	}
}

func wikiSource() Source {
	return Source{
		Name: "wiki",
		Schema: Schema{
			Module: "wiki",
			From: "wiki_pages wp JOIN wiki_subwikis ws ON ws.id = wp.subwikiid" +
				" JOIN wiki w ON w.id = ws.wikiid" + placementJoin("w"),
			Columns: map[Field]string{
				FieldID:     "wp.id",
				FieldCMID:   "cm.id",
				FieldTitle:  "wp.title",
				FieldBody:   "wp.cachedcontent",
				FieldParent: "w.name",
			},
			Match: []string{"wp.title", "wp.cachedcontent"},
			Order: []string{"w.name", "wp.title"},
		},
		Type:  fixedType(TypeLabel("wiki", "Page")),
		Title: titleWithParent,
		Link: func(r Row, _ Placement) api.Link {
			return api.NewLink("/mod/wiki/view.php", "pageid", id(r.ID))
		},
	}
}

func glossarySource() Source {
	return Source{
		Name: "glossary",
		Schema: Schema{
			Module: "glossary",
			From:   "glossary_entries ge JOIN glossary g ON g.id = ge.glossaryid" + placementJoin("g"),
			Columns: map[Field]string{
				FieldID:     "ge.id",
				FieldCMID:   "cm.id",
				FieldTitle:  "ge.concept",
				FieldBody:   "ge.definition",
				FieldParent: "g.name",
			},
			Match:  []string{"ge.concept", "ge.definition"},
			Order:  []string{"g.name", "ge.concept"},
			Hidden: "ge.approved = 1",
		},
		Type:  fixedType(TypeLabel("glossary", "Entry")),
		Title: titleWithParent,
		Link: func(r Row, _ Placement) api.Link {
			return api.NewLink("/mod/glossary/showentry.php", "eid", id(r.ID))
		},
	}
}

func workshopSource() Source {
	return Source{
		Name: "workshop",
		Schema: Schema{
			Module: "workshop",
			From:   "workshop_submissions wsub JOIN workshop w ON w.id = wsub.workshopid" + placementJoin("w"),
			Columns: map[Field]string{
				FieldID:     "wsub.id",
				FieldCMID:   "cm.id",
				FieldTitle:  "wsub.title",
				FieldBody:   "wsub.content",
				FieldParent: "w.name",
			},
			Match: []string{"wsub.title", "wsub.content"},
			Order: []string{"w.name", "wsub.title"},
		},
		Type:  fixedType(TypeLabel("workshop", "Submission")),
		Title: titleWithParent,
		Link: func(r Row, _ Placement) api.Link {
			return api.NewLink("/mod/workshop/submission.php", "id", id(r.ID))
		},
	}
}

func feedbackSource() Source {
	return Source{
		Name: "feedback",
		Schema: Schema{
			Module: "feedback",
			From:   "feedback_item fi JOIN feedback f ON f.id = fi.feedback" + placementJoin("f"),
			Columns: map[Field]string{
				FieldID:     "fi.id",
				FieldCMID:   "cm.id",
				FieldTitle:  "fi.name",
				FieldBody:   "fi.presentation",
				FieldParent: "f.name",
			},
			Match: []string{"fi.name", "fi.presentation"},
			Order: []string{"f.name", "fi.name"},
		},
		Type:  fixedType(TypeLabel("feedback", "Item")),
		Title: titleWithParent,
	}
}

func dataSource() Source {
	return Source{
		Name: "data",
		Schema: Schema{
			Module: "data",
			From: "data_content dc JOIN data_records dr ON dr.id = dc.recordid" +
				" JOIN data d ON d.id = dr.dataid" + placementJoin("d"),
			Columns: map[Field]string{
				FieldID:     "dc.id",
				FieldCMID:   "cm.id",
				FieldBody:   "dc.content",
				FieldParent: "d.name",
				FieldRef:    "dr.id",
			},
			Match: []string{"dc.content"},
			Order: []string{"d.name", "dc.content"},
		},
		Type: fixedType(TypeLabel("data", "Record")),
		// Records have no label of their own.
		Title: func(r Row) string {
			return WithParent(preview.Text(r.Body, preview.TitleLength), r.Parent)
		},
		Link: func(r Row, p Placement) api.Link {
			return api.NewLink("/mod/data/view.php", "id", id(p.ID), "rid", id(r.Ref))
		},
	}
}
