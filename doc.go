package yoyo

/*
Package yoyo applies ordered, dependency-aware schema migrations to
PostgreSQL, MySQL and SQLite databases and records which have been applied.

	Features:
	* apply, rollback, reapply, mark and unmark operations
	* dependency graph between migrations, resolved into a topological plan
	* per-migration transactions with per-step savepoints
	* per-step ignore-errors policies
	* post-apply hook migrations
	* cross-process advisory locking
	* use as library or CLI tool
*/
