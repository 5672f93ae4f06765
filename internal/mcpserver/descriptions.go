package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeCK() string {
	return `Computes the Chidamber & Kemerer object-oriented metric suite for every class in a Python project.

USE WHEN:
- Assessing class design quality before a refactoring
- Finding god classes that do too much
- Identifying tightly coupled classes
- Reviewing inheritance depth and breadth

INTERPRETING RESULTS:
- WMC (Weighted Methods per Class): number of methods; > 20 suggests the class does too much
- DIT (Depth of Inheritance Tree): declared ancestors up to a root; > 5 is a deep hierarchy
- NOC (Number of Children): direct subclasses; high values make the base hard to change
- RFC (Response For a Class): own methods plus distinct names they call; > 50 is a large surface
- CBO (Coupling Between Objects): classes whose method names this class calls; > 10 is high coupling
- LCOM (Lack of Cohesion in Methods): method pairs sharing no attribute minus pairs sharing one, floored at 0; higher = less cohesive
- Metrics above the configured thresholds should be read as refactoring candidates, not defects
- Files that fail to parse are listed under failures and contribute no classes

METRICS RETURNED:
- Per-class: path, class, wmc, dit, noc, rfc, cbo, lcom (sorted by the chosen metric)
- Summary: file and class counts, mean/stddev/max/p90 per metric, classes above the mean WMC, CBO and LCOM
- Diagnostics: parse failures, skipped files, inheritance cycles, duplicate class names`
}

func describeHistory() string {
	return `Analyzes the last N git commits of a Python project and reports how C&K metrics evolve.

USE WHEN:
- Checking whether design quality is improving or degrading
- Reviewing the impact of a recent refactoring
- Reporting metric trends across a release

INTERPRETING RESULTS:
- Revisions are listed oldest first; each carries the full project summary for that commit
- Trends fit a line through the mean WMC, CBO and LCOM per revision
- A positive slope means the mean grows by that much per commit
- R² close to 1 means the change is steady; close to 0 means it is noisy

METRICS RETURNED:
- revisions: commit (sha, date, author, summary) and project stats
- wmc_trend, cbo_trend, lcom_trend: slope, intercept, r_squared`
}
