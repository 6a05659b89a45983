package hint

// Oracle table hints.
const (
	Cache           Kind = "CACHE"
	Cluster         Kind = "CLUSTER"
	DrivingSite     Kind = "DRIVING_SITE"
	Fact            Kind = "FACT"
	Full            Kind = "FULL"
	Hash            Kind = "HASH"
	NoCache         Kind = "NOCACHE"
	NoFact          Kind = "NO_FACT"
	NoParallel      Kind = "NO_PARALLEL"
	NoPxJoinFilter  Kind = "NO_PX_JOIN_FILTER"
	NoUseHash       Kind = "NO_USE_HASH"
	PxJoinFilter    Kind = "PX_JOIN_FILTER"
	DynamicSampling Kind = "DYNAMIC_SAMPLING"
	Parallel        Kind = "PARALLEL"
)

// Oracle index hints.
const (
	Index               Kind = "INDEX"
	IndexAsc            Kind = "INDEX_ASC"
	IndexCombine        Kind = "INDEX_COMBINE"
	IndexDesc           Kind = "INDEX_DESC"
	IndexFastFullScan   Kind = "INDEX_FFS"
	IndexJoin           Kind = "INDEX_JOIN"
	IndexSkipScan       Kind = "INDEX_SS"
	IndexSkipScanAsc    Kind = "INDEX_SS_ASC"
	IndexSkipScanDesc   Kind = "INDEX_SS_DESC"
	NoIndex             Kind = "NO_INDEX"
	NoIndexFastFullScan Kind = "NO_INDEX_FFS"
	NoIndexSkipScan     Kind = "NO_INDEX_SS"
	NoParallelIndex     Kind = "NO_PARALLEL_INDEX"
	ParallelIndex       Kind = "PARALLEL_INDEX"
	UseNlWithIndex      Kind = "USE_NL_WITH_INDEX"
)

// Oracle query hints.
const (
	AllRows                Kind = "ALL_ROWS"
	Append                 Kind = "APPEND"
	CursorSharingExact     Kind = "CURSOR_SHARING_EXACT"
	ModelMinAnalysis       Kind = "MODEL_MIN_ANALYSIS"
	NoAppend               Kind = "NOAPPEND"
	NoExpand               Kind = "NO_EXPAND"
	NoPushSubq             Kind = "NO_PUSH_SUBQ"
	NoRewrite              Kind = "NO_REWRITE"
	NoQueryTransformation  Kind = "NO_QUERY_TRANSFORMATION"
	NoStarTransformation   Kind = "NO_STAR_TRANSFORMATION"
	NoUnnest               Kind = "NO_UNNEST"
	NoXMLQueryRewrite      Kind = "NO_XML_QUERY_REWRITE"
	Ordered                Kind = "ORDERED"
	PushSubq               Kind = "PUSH_SUBQ"
	Rule                   Kind = "RULE"
	StarTransformation     Kind = "STAR_TRANSFORMATION"
	Unnest                 Kind = "UNNEST"
	UseConcat              Kind = "USE_CONCAT"
	FirstRows              Kind = "FIRST_ROWS"
	Leading                Kind = "LEADING"
)

// OracleTableHints lists the table hint kinds of the Oracle vocabulary.
var OracleTableHints = []Kind{
	Cache, Cluster, DrivingSite, Fact, Full, Hash, NoCache, NoFact,
	NoParallel, NoPxJoinFilter, NoUseHash, PxJoinFilter, DynamicSampling, Parallel,
}

// OracleIndexHints lists the index hint kinds of the Oracle vocabulary.
var OracleIndexHints = []Kind{
	Index, IndexAsc, IndexCombine, IndexDesc, IndexFastFullScan, IndexJoin,
	IndexSkipScan, IndexSkipScanAsc, IndexSkipScanDesc, NoIndex,
	NoIndexFastFullScan, NoIndexSkipScan, NoParallelIndex, ParallelIndex, UseNlWithIndex,
}

// OracleQueryHints lists the query hint kinds of the Oracle vocabulary.
var OracleQueryHints = []Kind{
	AllRows, Append, CursorSharingExact, ModelMinAnalysis, NoAppend, NoExpand,
	NoPushSubq, NoRewrite, NoQueryTransformation, NoStarTransformation, NoUnnest,
	NoXMLQueryRewrite, Ordered, PushSubq, Rule, StarTransformation, Unnest,
	UseConcat, FirstRows, Leading,
}

// Oracle returns a fresh copy of the built-in Oracle vocabulary.
// PARALLEL separates its degree with ", "; everything else uses a space.
func Oracle() *Vocabulary {
	v := NewVocabulary("oracle")
	for _, k := range OracleTableHints {
		v.kinds[k] = KindSpec{Kind: k, Category: CategoryTable, Separator: DefaultSeparator}
	}
	for _, k := range OracleIndexHints {
		v.kinds[k] = KindSpec{Kind: k, Category: CategoryIndex, Separator: DefaultSeparator}
	}
	for _, k := range OracleQueryHints {
		v.kinds[k] = KindSpec{Kind: k, Category: CategoryQuery, Separator: DefaultSeparator}
	}
	v.kinds[Parallel] = KindSpec{Kind: Parallel, Category: CategoryTable, Separator: ", "}
	return v
}
