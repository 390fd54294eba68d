package yoyo

import "sort"

// topologicalSort orders migrations so every dependency precedes its
// dependents. Migrations not ordered relative to each other come out in
// identity order. Dependencies pointing outside the given set are ignored
// here; the resolver validates them against the full source set.
func topologicalSort(migrations []*Migration) ([]*Migration, error) {
	index := make(map[string]int, len(migrations))
	for i, m := range migrations {
		index[m.ID] = i
	}

	indegree := make([]int, len(migrations))
	dependents := make([][]int, len(migrations))
	for i, m := range migrations {
		for _, dep := range m.Depends {
			j, ok := index[dep]
			if !ok {
				continue
			}
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}

	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	sorted := make([]*Migration, 0, len(migrations))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			return migrations[ready[a]].ID < migrations[ready[b]].ID
		})
		n := ready[0]
		ready = ready[1:]
		sorted = append(sorted, migrations[n])

		for _, m := range dependents[n] {
			indegree[m]--
			if indegree[m] == 0 {
				ready = append(ready, m)
			}
		}
	}

	if len(sorted) != len(migrations) {
		var cycle []string
		for i, d := range indegree {
			if d > 0 {
				cycle = append(cycle, migrations[i].ID)
			}
		}
		sort.Strings(cycle)
		return nil, &CycleError{IDs: cycle}
	}

	return sorted, nil
}

// ancestors returns the identities of the transitive dependencies of id
// within the list.
func ancestors(id string, list *MigrationList) map[string]bool {
	deps := map[string]bool{}
	toProcess := []string{id}
	for len(toProcess) > 0 {
		current := toProcess[len(toProcess)-1]
		toProcess = toProcess[:len(toProcess)-1]
		m := list.Get(current)
		if m == nil {
			continue
		}
		for _, dep := range m.Depends {
			if deps[dep] {
				continue
			}
			deps[dep] = true
			toProcess = append(toProcess, dep)
		}
	}
	return deps
}

// descendants returns the identities of the transitive dependents of id
// within the list.
func descendants(id string, list *MigrationList) map[string]bool {
	result := map[string]bool{}
	seed := map[string]bool{id: true}
	for {
		found := false
		for _, m := range list.Items() {
			if seed[m.ID] {
				continue
			}
			for _, dep := range m.Depends {
				if seed[dep] {
					seed[m.ID] = true
					result[m.ID] = true
					found = true
					break
				}
			}
		}
		if !found {
			return result
		}
	}
}

// heads returns the migrations no other migration depends on, in identity
// order. New migrations are scaffolded to depend on them.
func heads(list *MigrationList) []string {
	depended := map[string]bool{}
	for _, m := range list.Items() {
		for _, dep := range m.Depends {
			depended[dep] = true
		}
	}
	var hs []string
	for _, m := range list.Items() {
		if !depended[m.ID] {
			hs = append(hs, m.ID)
		}
	}
	sort.Strings(hs)
	return hs
}
