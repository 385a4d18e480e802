package planfile

// Document is the top level of a plan file
type Document struct {
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Plan        *nodeDoc `yaml:"plan" json:"plan"`
}

type nodeDoc struct {
	Scan   *scanDoc   `yaml:"scan,omitempty" json:"scan,omitempty"`
	Values *valuesDoc `yaml:"values,omitempty" json:"values,omitempty"`
	Join   *joinDoc   `yaml:"join,omitempty" json:"join,omitempty"`
	Select *selectDoc `yaml:"select,omitempty" json:"select,omitempty"`
	SetOp  *setOpDoc  `yaml:"setop,omitempty" json:"setop,omitempty"`
	With   *withDoc   `yaml:"with,omitempty" json:"with,omitempty"`
	CTERef *cteRefDoc `yaml:"cte_ref,omitempty" json:"cte_ref,omitempty"`
}

type scanDoc struct {
	Table string `yaml:"table" json:"table"`
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`
}

type columnDoc struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

type valuesDoc struct {
	Columns []columnDoc     `yaml:"columns" json:"columns"`
	Rows    [][]interface{} `yaml:"rows" json:"rows"`
	Alias   string          `yaml:"alias,omitempty" json:"alias,omitempty"`
}

type joinDoc struct {
	Kind  string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Left  *nodeDoc `yaml:"left" json:"left"`
	Right *nodeDoc `yaml:"right" json:"right"`
	On    *exprDoc `yaml:"on,omitempty" json:"on,omitempty"`
}

type itemDoc struct {
	Expr  *exprDoc `yaml:"expr" json:"expr"`
	Alias string   `yaml:"alias,omitempty" json:"alias,omitempty"`
}

type sortDoc struct {
	Expr  *exprDoc `yaml:"expr" json:"expr"`
	Desc  bool     `yaml:"desc,omitempty" json:"desc,omitempty"`
	Nulls string   `yaml:"nulls,omitempty" json:"nulls,omitempty"`
}

type selectDoc struct {
	From       *nodeDoc   `yaml:"from,omitempty" json:"from,omitempty"`
	Where      *exprDoc   `yaml:"where,omitempty" json:"where,omitempty"`
	GroupBy    []*exprDoc `yaml:"group_by,omitempty" json:"group_by,omitempty"`
	Having     *exprDoc   `yaml:"having,omitempty" json:"having,omitempty"`
	Projection []itemDoc  `yaml:"projection,omitempty" json:"projection,omitempty"`
	Distinct   bool       `yaml:"distinct,omitempty" json:"distinct,omitempty"`
	OrderBy    []sortDoc  `yaml:"order_by,omitempty" json:"order_by,omitempty"`
	Limit      *int64     `yaml:"limit,omitempty" json:"limit,omitempty"`
	Offset     *int64     `yaml:"offset,omitempty" json:"offset,omitempty"`
}

type setOpDoc struct {
	Op    string   `yaml:"op" json:"op"`
	All   bool     `yaml:"all,omitempty" json:"all,omitempty"`
	Left  *nodeDoc `yaml:"left" json:"left"`
	Right *nodeDoc `yaml:"right" json:"right"`
}

type cteDoc struct {
	Name          string   `yaml:"name" json:"name"`
	Columns       []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Query         *nodeDoc `yaml:"query" json:"query"`
	Recursive     *nodeDoc `yaml:"recursive,omitempty" json:"recursive,omitempty"`
	UnionAll      bool     `yaml:"union_all,omitempty" json:"union_all,omitempty"`
	MaxIterations int      `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
}

type withDoc struct {
	CTEs []cteDoc `yaml:"ctes" json:"ctes"`
	Body *nodeDoc `yaml:"body" json:"body"`
}

type cteRefDoc struct {
	Name  string `yaml:"name" json:"name"`
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`
}

type exprDoc struct {
	Col string      `yaml:"col,omitempty" json:"col,omitempty"`
	Lit interface{} `yaml:"lit,omitempty" json:"lit,omitempty"`
	// Type converts Lit; with Lit absent or null it makes a NULL literal
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	Op    string   `yaml:"op,omitempty" json:"op,omitempty"`
	Left  *exprDoc `yaml:"left,omitempty" json:"left,omitempty"`
	Right *exprDoc `yaml:"right,omitempty" json:"right,omitempty"`

	And       []*exprDoc `yaml:"and,omitempty" json:"and,omitempty"`
	Or        []*exprDoc `yaml:"or,omitempty" json:"or,omitempty"`
	Not       *exprDoc   `yaml:"not,omitempty" json:"not,omitempty"`
	Neg       *exprDoc   `yaml:"neg,omitempty" json:"neg,omitempty"`
	IsNull    *exprDoc   `yaml:"is_null,omitempty" json:"is_null,omitempty"`
	IsNotNull *exprDoc   `yaml:"is_not_null,omitempty" json:"is_not_null,omitempty"`

	In      *inDoc      `yaml:"in,omitempty" json:"in,omitempty"`
	Between *betweenDoc `yaml:"between,omitempty" json:"between,omitempty"`
	Like    *likeDoc    `yaml:"like,omitempty" json:"like,omitempty"`
	Case    *caseDoc    `yaml:"case,omitempty" json:"case,omitempty"`
	Call    *callDoc    `yaml:"call,omitempty" json:"call,omitempty"`
	Agg     *aggDoc     `yaml:"agg,omitempty" json:"agg,omitempty"`
	Window  *windowDoc  `yaml:"window,omitempty" json:"window,omitempty"`

	Exists   *existsDoc  `yaml:"exists,omitempty" json:"exists,omitempty"`
	InQuery  *inQueryDoc `yaml:"in_query,omitempty" json:"in_query,omitempty"`
	Subquery *nodeDoc    `yaml:"subquery,omitempty" json:"subquery,omitempty"`
}

type existsDoc struct {
	Query  *nodeDoc `yaml:"query" json:"query"`
	Negate bool     `yaml:"negate,omitempty" json:"negate,omitempty"`
}

type inQueryDoc struct {
	Expr   *exprDoc `yaml:"expr" json:"expr"`
	Query  *nodeDoc `yaml:"query" json:"query"`
	Negate bool     `yaml:"negate,omitempty" json:"negate,omitempty"`
}

type inDoc struct {
	Expr   *exprDoc   `yaml:"expr" json:"expr"`
	List   []*exprDoc `yaml:"list" json:"list"`
	Negate bool       `yaml:"negate,omitempty" json:"negate,omitempty"`
}

type betweenDoc struct {
	Expr   *exprDoc `yaml:"expr" json:"expr"`
	Low    *exprDoc `yaml:"low" json:"low"`
	High   *exprDoc `yaml:"high" json:"high"`
	Negate bool     `yaml:"negate,omitempty" json:"negate,omitempty"`
}

type likeDoc struct {
	Expr    *exprDoc `yaml:"expr" json:"expr"`
	Pattern *exprDoc `yaml:"pattern" json:"pattern"`
	Negate  bool     `yaml:"negate,omitempty" json:"negate,omitempty"`
}

type whenDoc struct {
	When *exprDoc `yaml:"when" json:"when"`
	Then *exprDoc `yaml:"then" json:"then"`
}

type caseDoc struct {
	Operand *exprDoc  `yaml:"operand,omitempty" json:"operand,omitempty"`
	Whens   []whenDoc `yaml:"whens" json:"whens"`
	Else    *exprDoc  `yaml:"else,omitempty" json:"else,omitempty"`
}

type callDoc struct {
	Name string     `yaml:"name" json:"name"`
	Args []*exprDoc `yaml:"args,omitempty" json:"args,omitempty"`
}

type aggDoc struct {
	Name      string    `yaml:"name" json:"name"`
	Arg       *exprDoc  `yaml:"arg,omitempty" json:"arg,omitempty"`
	Distinct  bool      `yaml:"distinct,omitempty" json:"distinct,omitempty"`
	OrderBy   []sortDoc `yaml:"order_by,omitempty" json:"order_by,omitempty"`
	Separator *exprDoc  `yaml:"separator,omitempty" json:"separator,omitempty"`
}

type boundDoc struct {
	Kind   string `yaml:"kind" json:"kind"`
	Offset int64  `yaml:"offset,omitempty" json:"offset,omitempty"`
}

type frameDoc struct {
	Mode  string   `yaml:"mode" json:"mode"`
	Start boundDoc `yaml:"start" json:"start"`
	End   boundDoc `yaml:"end" json:"end"`
}

type windowDoc struct {
	Name        string     `yaml:"name" json:"name"`
	Args        []*exprDoc `yaml:"args,omitempty" json:"args,omitempty"`
	PartitionBy []*exprDoc `yaml:"partition_by,omitempty" json:"partition_by,omitempty"`
	OrderBy     []sortDoc  `yaml:"order_by,omitempty" json:"order_by,omitempty"`
	Frame       *frameDoc  `yaml:"frame,omitempty" json:"frame,omitempty"`
}
